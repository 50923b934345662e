package main

import (
	"context"
	"log"
	"time"

	"github.com/shahram8708/PromptX/assembly"
	"github.com/shahram8708/PromptX/footage"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/internal/platform"
	"github.com/shahram8708/PromptX/narration"
	"github.com/shahram8708/PromptX/processing"
	"github.com/shahram8708/PromptX/store"
	"github.com/shahram8708/PromptX/tasks"
	"github.com/shahram8708/PromptX/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Use the shared initializers
	db := platform.NewDBConnection(cfg.DatabaseURL)
	rdb := platform.NewRedisClient(cfg.RedisURL)

	if err := store.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	st := store.New(db)

	pexels := footage.NewPexelsClient(cfg.PexelsKey,
		time.Duration(cfg.Pipeline.Footage.DownloadTimeoutSec)*time.Second)

	processor := worker.NewProcessor(rdb, st, cfg,
		processing.NewGenerator(cfg.OpenAIKey, cfg.Pipeline.Script),
		footage.NewRetriever(pexels, pexels, cfg.Pipeline.Footage),
		narration.NewSynthesizer(cfg.OpenAIKey, cfg.Pipeline.Narration),
		assembly.NewRenderer(cfg.Pipeline.Assembly),
	)

	processor.Register(tasks.QueueScript, processor.HandleScript)
	processor.Register(tasks.QueueFootage, processor.HandleFootage)
	processor.Register(tasks.QueueNarration, processor.HandleNarration)
	processor.Register(tasks.QueueAssemble, processor.HandleAssemble)

	log.Println("Worker started, waiting for queue tasks...")
	processor.Listen(context.Background(),
		tasks.QueueScript,
		tasks.QueueFootage,
		tasks.QueueNarration,
		tasks.QueueAssemble,
	)
}
