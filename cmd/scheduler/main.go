package main

import (
	"context"
	"log"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/tono-megu/ai-video-gen/internal/platform"
	"github.com/tono-megu/ai-video-gen/tasks"
)

// The scheduler periodically queues a preference-evolution run so that
// accumulated corrections get folded into preferences even when nobody calls
// the on-demand endpoint. Run a single instance to avoid duplicate jobs.
func main() {
	rdb := platform.NewRedisClient()
	ctx := context.Background()

	schedule := os.Getenv("EVOLVE_SCHEDULE")
	if schedule == "" {
		schedule = "@every 1h"
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		payload, err := tasks.Marshal(tasks.EvolveTaskPayload{Limit: 50})
		if err != nil {
			log.Printf("Error marshalling evolve task: %v", err)
			return
		}
		if err := rdb.LPush(ctx, tasks.QueuePreferenceEvolve, payload).Err(); err != nil {
			log.Printf("Error pushing evolve task to queue %s: %v", tasks.QueuePreferenceEvolve, err)
			return
		}
		log.Println("Queued preference evolution run")
	})
	if err != nil {
		log.Fatalf("Error scheduling evolution job: %v", err)
	}

	c.Start()
	defer c.Stop()

	log.Printf("Scheduler started, evolution schedule: %s", schedule)
	// Keep the main thread alive
	select {}
}
