package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// Notifier publishes per-project lifecycle events over Redis pub/sub.
// Delivery is push-only and best-effort: publish failures are logged and
// swallowed so that pipeline work never fails because a subscriber is gone.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func channelFor(projectID uint) string {
	return fmt.Sprintf("project_progress:%d", projectID)
}

// Progress reports an in-flight pipeline stage.
func (n *Notifier) Progress(ctx context.Context, projectID uint, stage string, progress int, message string) {
	n.publish(ctx, projectID, map[string]interface{}{
		"type":     "progress",
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

// Complete reports a finished pipeline stage with an optional result.
func (n *Notifier) Complete(ctx context.Context, projectID uint, stage string, result interface{}) {
	n.publish(ctx, projectID, map[string]interface{}{
		"type":   "complete",
		"stage":  stage,
		"result": result,
	})
}

// Error reports a failed pipeline stage.
func (n *Notifier) Error(ctx context.Context, projectID uint, stage, errMsg string) {
	n.publish(ctx, projectID, map[string]interface{}{
		"type":  "error",
		"stage": stage,
		"error": errMsg,
	})
}

func (n *Notifier) publish(ctx context.Context, projectID uint, event map[string]interface{}) {
	if n == nil || n.rdb == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling progress event: %v", err)
		return
	}
	if err := n.rdb.Publish(ctx, channelFor(projectID), payload).Err(); err != nil {
		log.Printf("Error publishing progress event for project %d: %v", projectID, err)
	}
}
