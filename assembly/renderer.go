package assembly

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/media"
)

// minFinalBytes rejects a corrupt or truncated render output.
const minFinalBytes = 10000

// Renderer executes a Timeline with ffmpeg: per-segment trim/loop, concat,
// narration mux, and caption embedding. Any codec failure is fatal and a
// partial output file is never left behind.
type Renderer struct {
	cfg config.AssemblyConfig
}

func NewRenderer(cfg config.AssemblyConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render produces the final video under dir and returns its path.
func (r *Renderer) Render(ctx context.Context, tl *Timeline, narrationPath, dir string) (string, error) {
	finalPath := filepath.Join(dir, "final.mp4")
	// A retry starts assembly from scratch; stale output must never be
	// served.
	os.Remove(finalPath)

	segPaths, err := r.prepareSegments(ctx, tl, dir)
	if err != nil {
		return "", apperr.NewResource("prepare segments", err)
	}
	defer removeAll(segPaths)

	visualsPath := filepath.Join(dir, "visuals.mp4")
	if err := r.concatSegments(ctx, segPaths, dir, visualsPath); err != nil {
		return "", apperr.NewResource("concatenate segments", err)
	}
	defer os.Remove(visualsPath)

	srtPath := filepath.Join(dir, "captions.srt")
	if err := WriteSRT(tl.Cues, srtPath); err != nil {
		return "", apperr.NewResource("write captions", err)
	}

	if err := r.mux(ctx, visualsPath, narrationPath, srtPath, finalPath); err != nil {
		os.Remove(finalPath)
		return "", apperr.NewResource("mux final video", err)
	}

	if err := media.ValidateFile(finalPath, minFinalBytes); err != nil {
		os.Remove(finalPath)
		return "", apperr.NewResource("final video invalid", err)
	}

	log.Printf("[assembly] final video ready: %s (%.2fs, %d segments, %d cues)",
		finalPath, tl.TotalSec, len(tl.Segments), len(tl.Cues))
	return finalPath, nil
}

// prepareSegments encodes each timeline segment to the target resolution
// and frame rate, trimming long clips from their start and looping short
// ones until the allocation is filled.
func (r *Renderer) prepareSegments(ctx context.Context, tl *Timeline, dir string) ([]string, error) {
	scalePad := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		r.cfg.Width, r.cfg.Height, r.cfg.Width, r.cfg.Height,
	)

	var paths []string
	for i, seg := range tl.Segments {
		outFile := filepath.Join(dir, fmt.Sprintf("segment_%03d.mp4", i))

		args := []string{"-y"}
		if seg.Loop {
			loops := int(seg.DurationSec/seg.Clip.DurationSec) + 2
			args = append(args, "-stream_loop", fmt.Sprintf("%d", loops))
		}
		if seg.SourceOffsetSec > 0 {
			args = append(args, "-ss", fmt.Sprintf("%.3f", seg.SourceOffsetSec))
		}
		args = append(args,
			"-i", seg.Clip.Path,
			"-t", fmt.Sprintf("%.3f", seg.DurationSec),
			"-vf", scalePad,
			"-r", fmt.Sprintf("%d", r.cfg.FPS),
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-pix_fmt", "yuv420p",
			"-an",
			outFile,
		)

		cmd := exec.CommandContext(ctx, "ffmpeg", args...)
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			removeAll(paths)
			return nil, fmt.Errorf("ffmpeg segment %d: %w", i, err)
		}
		paths = append(paths, outFile)
	}
	return paths, nil
}

// concatSegments joins the uniformly encoded segments in timeline order.
func (r *Renderer) concatSegments(ctx context.Context, segPaths []string, dir, outFile string) error {
	listFile := filepath.Join(dir, "segments_concat.txt")
	var lines []string
	for _, p := range segPaths {
		lines = append(lines, fmt.Sprintf("file '%s'", p))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}
	defer os.Remove(listFile)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat segments: %w", err)
	}
	return nil
}

// mux combines the visual track, the narration track, and the caption
// stream into one MP4. Captions go in as a selectable mov_text stream;
// burn-in re-encodes the video with the subtitles filter instead.
func (r *Renderer) mux(ctx context.Context, visualsPath, narrationPath, srtPath, outFile string) error {
	var cmd *exec.Cmd
	if r.cfg.BurnCaptions {
		subtitleFilter := fmt.Sprintf("subtitles=%s", escapeSubtitlePath(srtPath))
		cmd = exec.CommandContext(ctx, "ffmpeg", "-y",
			"-i", visualsPath,
			"-i", narrationPath,
			"-vf", subtitleFilter,
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "20",
			"-c:a", "aac",
			"-b:a", "192k",
			"-shortest",
			"-movflags", "+faststart",
			outFile,
		)
	} else {
		cmd = exec.CommandContext(ctx, "ffmpeg", "-y",
			"-i", visualsPath,
			"-i", narrationPath,
			"-i", srtPath,
			"-map", "0:v",
			"-map", "1:a",
			"-map", "2:s",
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "192k",
			"-c:s", "mov_text",
			"-metadata:s:s:0", "language=eng",
			"-shortest",
			"-movflags", "+faststart",
			outFile,
		)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}

func removeAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
