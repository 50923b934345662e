package worker

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/shahram8708/PromptX/assembly"
	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/models"
	"github.com/shahram8708/PromptX/tasks"
)

// HandleScript processes tasks from QueueScript: generate the narration
// script and search keywords. Upstream failures degrade to a templated
// fallback inside the generator, so this stage never fails the session on
// service errors alone.
func (p *Processor) HandleScript(ctx context.Context, payload string) error {
	var task tasks.SessionTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	sess, err := p.Store.Get(task.SessionID)
	if err != nil {
		return err
	}
	if err := p.Store.Advance(sess, models.StageScripting); err != nil {
		return err
	}

	log.Printf("Generating script for session %s", sess.ID)
	script := p.Script.Generate(ctx, sess.Prompt)

	dir := sess.Dir(p.Cfg.StorageRoot)
	scriptPath := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(scriptPath, []byte(script.Body), 0644); err != nil {
		p.Store.Fail(sess, apperr.NewResource("write script artifact", err))
		return err
	}
	if err := p.Store.SaveScript(sess, script.Body, script.Keywords, scriptPath); err != nil {
		p.Store.Fail(sess, apperr.NewResource("persist script", err))
		return err
	}
	log.Printf("Session %s: script ready (%d chars, keywords %v)", sess.ID, len(script.Body), script.Keywords)

	if err := p.Enqueue(ctx, tasks.QueueFootage, tasks.SessionTaskPayload{SessionID: sess.ID}); err != nil {
		p.Store.Fail(sess, apperr.NewResource("queue footage stage", err))
		return err
	}
	return nil
}

// HandleFootage processes tasks from QueueFootage: fetch one clip per
// keyword, concurrently, with fallback substitution on empty or failed
// results.
func (p *Processor) HandleFootage(ctx context.Context, payload string) error {
	var task tasks.SessionTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	sess, err := p.Store.Get(task.SessionID)
	if err != nil {
		return err
	}
	if err := p.Store.Advance(sess, models.StageFetchingFootage); err != nil {
		return err
	}

	keywords := sess.Keywords()
	log.Printf("Fetching footage for session %s: %v", sess.ID, keywords)

	clips, err := p.Footage.Fetch(ctx, keywords, sess.Dir(p.Cfg.StorageRoot))
	if err != nil {
		p.Store.Fail(sess, err)
		return err
	}
	if err := p.Store.SaveClips(sess, clips); err != nil {
		p.Store.Fail(sess, apperr.NewResource("persist clips", err))
		return err
	}
	log.Printf("Session %s: %d clips ready", sess.ID, len(clips))

	if err := p.Enqueue(ctx, tasks.QueueNarration, tasks.SessionTaskPayload{SessionID: sess.ID}); err != nil {
		p.Store.Fail(sess, apperr.NewResource("queue narration stage", err))
		return err
	}
	return nil
}

// HandleNarration processes tasks from QueueNarration: synthesize the
// voiceover and measure its duration. Synthesis failure is fatal — there is
// no narration-less output.
func (p *Processor) HandleNarration(ctx context.Context, payload string) error {
	var task tasks.SessionTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	sess, err := p.Store.Get(task.SessionID)
	if err != nil {
		return err
	}
	if err := p.Store.Advance(sess, models.StageSynthesizingAudio); err != nil {
		return err
	}

	log.Printf("Synthesizing narration for session %s", sess.ID)
	track, err := p.Narration.Synthesize(ctx, sess.Script, sess.Dir(p.Cfg.StorageRoot))
	if err != nil {
		p.Store.Fail(sess, err)
		return err
	}
	if err := p.Store.SaveNarration(sess, track.Path, track.DurationSec); err != nil {
		p.Store.Fail(sess, apperr.NewResource("persist narration", err))
		return err
	}
	log.Printf("Session %s: narration ready (%.2fs)", sess.ID, track.DurationSec)

	if err := p.Enqueue(ctx, tasks.QueueAssemble, tasks.SessionTaskPayload{SessionID: sess.ID}); err != nil {
		p.Store.Fail(sess, apperr.NewResource("queue assembly stage", err))
		return err
	}
	return nil
}

// HandleAssemble processes tasks from QueueAssemble: plan the timeline from
// the narration duration and render the final video. Render failure is
// fatal and never leaves a partial artifact behind.
func (p *Processor) HandleAssemble(ctx context.Context, payload string) error {
	var task tasks.SessionTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	sess, err := p.Store.Get(task.SessionID)
	if err != nil {
		return err
	}
	if err := p.Store.Advance(sess, models.StageAssembling); err != nil {
		return err
	}

	clips, err := p.Store.ClipsFor(sess.ID)
	if err != nil {
		p.Store.Fail(sess, apperr.NewResource("load clips", err))
		return err
	}

	tl, err := assembly.Plan(clips, sess.Script, sess.NarrationSec, p.Cfg.Pipeline.Assembly)
	if err != nil {
		p.Store.Fail(sess, err)
		return err
	}

	log.Printf("Rendering session %s: %d segments over %.2fs", sess.ID, len(tl.Segments), tl.TotalSec)
	finalPath, err := p.Renderer.Render(ctx, tl, sess.NarrationPath, sess.Dir(p.Cfg.StorageRoot))
	if err != nil {
		p.Store.Fail(sess, err)
		return err
	}
	if err := p.Store.SaveFinal(sess, finalPath); err != nil {
		p.Store.Fail(sess, apperr.NewResource("persist final artifact", err))
		return err
	}
	if err := p.Store.Advance(sess, models.StageDone); err != nil {
		return err
	}
	log.Printf("Session %s complete: %s", sess.ID, finalPath)

	p.cleanupIntermediates(sess, clips)
	return nil
}

// cleanupIntermediates removes the per-stage working files once the final
// artifact exists. The script, captions, and final video are kept until the
// retention sweep removes the whole session.
func (p *Processor) cleanupIntermediates(sess *models.Session, clips []models.ClipAsset) {
	for _, clip := range clips {
		if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("Session %s: cleanup %s: %v", sess.ID, clip.Path, err)
		}
	}
	if sess.NarrationPath != "" {
		if err := os.Remove(sess.NarrationPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Session %s: cleanup %s: %v", sess.ID, sess.NarrationPath, err)
		}
	}
}
