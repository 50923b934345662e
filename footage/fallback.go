package footage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shahram8708/PromptX/internal/config"
)

// fallbackColors cycle per keyword position so neighbouring fallback clips
// stay visually distinct.
var fallbackColors = []string{"steelblue", "seagreen", "purple"}

// CreateFallbackClip generates a solid-color placeholder clip with the
// keyword rendered in the center. It is fully deterministic for a given
// keyword and index.
func CreateFallbackClip(ctx context.Context, keyword, dest string, index int, cfg config.FootageConfig) error {
	color := fallbackColors[index%len(fallbackColors)]
	label := strings.ToUpper(keyword)

	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=72:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeFFmpegText(label),
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.1f:r=24", color, cfg.MinWidth, cfg.MinHeight, cfg.FallbackClipSec),
		"-vf", drawtext,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		dest,
	)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg fallback clip: %w", err)
	}
	return nil
}

func escapeFFmpegText(s string) string {
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	return s
}
