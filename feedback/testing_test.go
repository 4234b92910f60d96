package feedback

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tono-megu/ai-video-gen/models"
)

// newTestDB opens a per-test in-memory database migrated with the full
// schema. The DSN is keyed by test name so parallel tests stay isolated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Project{},
		&models.Section{},
		&models.CorrectionEvent{},
		&models.Preference{},
	)
	require.NoError(t, err)
	return db
}

// fakeGen is a canned TextGenerator for inference and evolver tests.
type fakeGen struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeVision is a canned VisionComparer for visual diff tests.
type fakeVision struct {
	response string
	err      error
}

func (f *fakeVision) Compare(ctx context.Context, imageA, imageB string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func uintPtr(v uint) *uint { return &v }
