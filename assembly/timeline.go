package assembly

import (
	"fmt"
	"math"

	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/models"
)

// Segment is one visual slot in the timeline: a clip shown for an exact
// frame-quantized duration, trimmed from its start or looped to fill.
type Segment struct {
	Clip            models.ClipAsset
	SourceOffsetSec float64
	DurationSec     float64
	Loop            bool
}

// Cue is one caption fragment timed onto the narration axis.
type Cue struct {
	Index    int
	Text     string
	StartSec float64
	EndSec   float64
}

// Timeline is the assembly plan: visual segments whose durations sum to the
// narration duration within one frame, and gap-free caption cues spanning
// the full narration.
type Timeline struct {
	Segments []Segment
	Cues     []Cue
	TotalSec float64
	FPS      int
}

// FrameSec returns the duration of one frame, the rounding tolerance for
// the whole plan.
func (t *Timeline) FrameSec() float64 {
	return 1.0 / float64(t.FPS)
}

// Plan computes the timeline for the given clips and narration duration.
// The narration duration governs all visual pacing: the target total is
// distributed equally across clip slots with a minimum watchable duration
// per slot, and the final segment absorbs the frame-rounding residual. The
// allocation is fully deterministic.
func Plan(clips []models.ClipAsset, scriptBody string, narrationSec float64, cfg config.AssemblyConfig) (*Timeline, error) {
	if len(clips) == 0 {
		return nil, apperr.NewValidation("timeline requires at least one clip")
	}
	if narrationSec <= 0 {
		return nil, apperr.NewValidation(fmt.Sprintf("narration duration must be positive, got %v", narrationSec))
	}

	fps := cfg.FPS
	totalFrames := int(math.Round(narrationSec * float64(fps)))
	if totalFrames < 1 {
		totalFrames = 1
	}
	minFrames := int(math.Ceil(cfg.MinClipSec * float64(fps)))

	// Equal split across one slot per clip; if that falls below the
	// watchable floor, use fewer slots and cycle the clip list oldest-first
	// so no clip is shown for a sub-floor blink.
	slots := len(clips)
	if totalFrames/slots < minFrames {
		slots = totalFrames / minFrames
		if slots < 1 {
			slots = 1
		}
	}

	baseFrames := totalFrames / slots
	residual := totalFrames % slots

	segments := make([]Segment, 0, slots)
	for i := 0; i < slots; i++ {
		frames := baseFrames
		if i == slots-1 {
			frames += residual
		}
		clip := clips[i%len(clips)]
		dur := float64(frames) / float64(fps)
		segments = append(segments, Segment{
			Clip:        clip,
			DurationSec: dur,
			// Trim from the clip's start: deterministic and reproducible.
			SourceOffsetSec: 0,
			Loop:            clip.DurationSec < dur,
		})
	}

	totalSec := float64(totalFrames) / float64(fps)
	cues := BuildCues(scriptBody, totalSec, cfg.CaptionMaxChars)

	return &Timeline{
		Segments: segments,
		Cues:     cues,
		TotalSec: totalSec,
		FPS:      fps,
	}, nil
}
