package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeDuration uses ffprobe to measure a media file's duration in seconds.
// The measurement is authoritative for pacing — never estimate from text
// length or container metadata alone.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return dur, nil
}

// ValidateFile rejects missing, empty, or truncated files. minBytes guards
// against serving a corrupt artifact from a partially failed download or
// encode.
func ValidateFile(path string, minBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < minBytes {
		return fmt.Errorf("file %s too small: %d bytes (min %d)", path, info.Size(), minBytes)
	}
	return nil
}
