package tasks

import "encoding/json"

// ---
// QUEUE DEFINITIONS
// ---
// We define all queue names as constants here.
const (
	// QueueVideoCompose renders and concatenates a project's sections into
	// the final video.
	QueueVideoCompose = "q_video_compose"

	// QueuePreferenceEvolve infers preferences from recent corrections and
	// persists the candidates.
	QueuePreferenceEvolve = "q_preference_evolve"
)

// ---
// TASK PAYLOADS
// ---
// These are the structs that will be JSON-marshalled and sent to Redis.

// ComposeTaskPayload is the payload for QueueVideoCompose
type ComposeTaskPayload struct {
	ProjectID uint `json:"project_id"`
}

// EvolveTaskPayload is the payload for QueuePreferenceEvolve. Limit bounds
// how many recent corrections feed the inference batch.
type EvolveTaskPayload struct {
	Limit int `json:"limit"`
}

// ---
// HELPER FUNCTIONS
// ---

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
