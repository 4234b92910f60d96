package feedback

import (
	"context"
	"log"

	"github.com/tono-megu/ai-video-gen/models"
)

// EvolveResult reports one run of the inference feedback loop.
type EvolveResult struct {
	CorrectionsAnalyzed int                 `json:"corrections_analyzed"`
	Created             []models.Preference `json:"preferences"`
	Mode                string              `json:"mode"`
}

// EvolveRecent pulls the most recent corrections, infers preference
// candidates from them, and persists the valid ones. Candidates that fail
// scope validation are skipped with a log line rather than aborting the run.
// Shared by the on-demand API endpoint and the scheduled worker task.
func EvolveRecent(ctx context.Context, corrections *CorrectionStore, prefs *PreferenceStore, engine *InferenceEngine, limit int) (*EvolveResult, error) {
	if limit <= 0 {
		limit = 50
	}

	batch, err := corrections.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &EvolveResult{
		CorrectionsAnalyzed: len(batch),
		Created:             []models.Preference{},
		Mode:                ModeMock,
	}
	if len(batch) == 0 {
		return result, nil
	}

	candidates, mode := engine.Infer(ctx, batch)
	result.Mode = mode

	for i := range candidates {
		saved, err := prefs.Create(ctx, &candidates[i])
		if err != nil {
			log.Printf("Skipping invalid inferred preference %q: %v", candidates[i].Description, err)
			continue
		}
		result.Created = append(result.Created, *saved)
	}
	return result, nil
}
