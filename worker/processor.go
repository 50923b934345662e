package worker

import (
	"context"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/shahram8708/PromptX/assembly"
	"github.com/shahram8708/PromptX/footage"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/narration"
	"github.com/shahram8708/PromptX/processing"
	"github.com/shahram8708/PromptX/store"
	"github.com/shahram8708/PromptX/tasks"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Processor holds the pipeline components and registered task handlers.
// Each session's stages run sequentially through the queue chain; distinct
// sessions are fully independent and processed concurrently by however many
// workers are listening.
type Processor struct {
	RDB       *redis.Client
	Store     *store.Store
	Cfg       *config.Config
	Script    *processing.Generator
	Footage   *footage.Retriever
	Narration *narration.Synthesizer
	Renderer  *assembly.Renderer

	handlers map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(rdb *redis.Client, st *store.Store, cfg *config.Config,
	script *processing.Generator, ftg *footage.Retriever,
	synth *narration.Synthesizer, renderer *assembly.Renderer) *Processor {
	return &Processor{
		RDB:       rdb,
		Store:     st,
		Cfg:       cfg,
		Script:    script,
		Footage:   ftg,
		Narration: synth,
		Renderer:  renderer,
		handlers:  make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	log.Printf("Registered handler for queue: %s", queueName)
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.RDB.LPush(ctx, queueName, payloadStr).Err()
}

// Listen starts the worker, listening on all registered queues.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	log.Printf("Worker listening on %d queues: %v", len(queueNames), queueNames)

	for {
		// BRPop blocks until a task is available on any of the listed queues.
		// This ensures only one worker receives any given task.
		result, err := p.RDB.BRPop(ctx, 0, queueNames...).Result()
		if err != nil {
			log.Printf("Error popping from queue: %v", err)
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		queueName := result[0]
		payload := result[1]

		handler, ok := p.handlers[queueName]
		if !ok {
			log.Printf("Error: No handler registered for queue %s", queueName)
			continue
		}

		if err := handler(ctx, payload); err != nil {
			log.Printf("Error processing task from %s: %v", queueName, err)
		}
	}
}
