package narration

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/media"
)

// minAudioBytes rejects empty or truncated synthesis output.
const minAudioBytes = 1000

// Track is the synthesized narration audio. DurationSec is measured from
// the encoded file and is the authoritative pacing source for assembly.
type Track struct {
	Path        string
	DurationSec float64
	Voice       string
	Model       string
}

// Synthesizer converts a script body into one continuous narration track.
// Unlike scripting and footage, synthesis failure is fatal to the session:
// there is no narration-less output.
type Synthesizer struct {
	client openai.Client
	cfg    config.NarrationConfig
}

func NewSynthesizer(apiKey string, cfg config.NarrationConfig) *Synthesizer {
	return &Synthesizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg,
	}
}

// Synthesize converts script into spoken audio under dir. Long scripts are
// synthesized in sentence-bounded chunks and stitched into one track before
// the total duration is measured.
func (s *Synthesizer) Synthesize(ctx context.Context, script, dir string) (*Track, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, apperr.NewValidation("script body must not be empty")
	}

	chunks := ChunkScript(script, s.cfg.MaxChunkChars)
	finalPath := filepath.Join(dir, "narration.mp3")

	var chunkPaths []string
	for i, chunk := range chunks {
		path := finalPath
		if len(chunks) > 1 {
			path = filepath.Join(dir, fmt.Sprintf("narration_part_%02d.mp3", i))
		}
		if err := s.synthesizeChunk(ctx, chunk, path); err != nil {
			return nil, apperr.NewUpstream("speech synthesis", err)
		}
		chunkPaths = append(chunkPaths, path)
	}

	if len(chunkPaths) > 1 {
		if err := stitchChunks(ctx, chunkPaths, dir, finalPath); err != nil {
			return nil, apperr.NewResource("stitch narration chunks", err)
		}
		for _, p := range chunkPaths {
			os.Remove(p)
		}
	}

	dur, err := media.ProbeDuration(ctx, finalPath)
	if err != nil {
		return nil, apperr.NewResource("measure narration duration", err)
	}
	log.Printf("[narration] synthesized %d chunk(s), %.2fs total", len(chunks), dur)

	return &Track{
		Path:        finalPath,
		DurationSec: dur,
		Voice:       s.cfg.Voice,
		Model:       s.cfg.Model,
	}, nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, text, dest string) error {
	var err error
	delay := 2 * time.Second
	for attempt := 1; attempt <= 3; attempt++ {
		err = s.requestSpeech(ctx, text, dest)
		if err == nil {
			return nil
		}
		log.Printf("[narration] TTS attempt %d failed: %v — retrying...", attempt, err)
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func (s *Synthesizer) requestSpeech(ctx context.Context, text, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSec)*time.Second)
	defer cancel()

	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.cfg.Model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.cfg.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("OpenAI speech API: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	if err := media.ValidateFile(dest, minAudioBytes); err != nil {
		os.Remove(dest)
		return fmt.Errorf("synthesized audio invalid: %w", err)
	}
	return nil
}

// stitchChunks concatenates chunk audio files into one continuous track.
func stitchChunks(ctx context.Context, chunkPaths []string, dir, dest string) error {
	listFile := filepath.Join(dir, "narration_concat.txt")
	var lines []string
	for _, p := range chunkPaths {
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
		dest,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat narration: %w", err)
	}
	return nil
}

// ChunkScript splits text into sentence-bounded chunks of at most maxChars
// characters. A single sentence longer than maxChars is hard-split on word
// boundaries.
func ChunkScript(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLongSentence(sentence, maxChars) {
			if current.Len() > 0 && current.Len()+1+len(piece) > maxChars {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(piece)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences splits on terminal punctuation, keeping the punctuation
// with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitLongSentence(sentence string, maxChars int) []string {
	if len(sentence) <= maxChars {
		return []string{sentence}
	}
	var pieces []string
	words := strings.Fields(sentence)
	var current strings.Builder
	for _, w := range words {
		if current.Len() > 0 && current.Len()+1+len(w) > maxChars {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
