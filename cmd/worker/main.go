package main

import (
	"context"
	"log"

	"github.com/tono-megu/ai-video-gen/feedback"
	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/internal/platform"
	"github.com/tono-megu/ai-video-gen/tasks"
	"github.com/tono-megu/ai-video-gen/worker"
)

func main() {
	// Use the shared initializers
	db := platform.NewDBConnection()
	platform.Migrate(db)
	rdb := platform.NewRedisClient()
	ctx := context.Background()

	// Without an API key the inference engine runs in mock mode.
	var gen generation.TextGenerator
	if c := generation.FromEnv(); c != nil {
		gen = c
	}
	engine := feedback.NewInferenceEngine(gen)

	p := worker.NewProcessor(db, rdb, engine)
	p.Register(tasks.QueueVideoCompose, p.HandleComposeVideo)
	p.Register(tasks.QueuePreferenceEvolve, p.HandleEvolvePreferences)

	log.Println("Worker started, waiting for queue tasks...")
	p.Listen(ctx, tasks.QueueVideoCompose, tasks.QueuePreferenceEvolve)
}
