package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tono-megu/ai-video-gen/models"
)

func TestCreatePreferenceDefaults(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	pref, err := store.Create(ctx, &models.Preference{Description: "Keep slides minimal"})
	require.NoError(t, err)
	assert.Equal(t, models.ScopeGlobal, pref.Scope)
	assert.Equal(t, 0.5, pref.Confidence)
	assert.Equal(t, 1, pref.PromptVersion)
	assert.True(t, pref.IsActive)
}

func TestCreatePreferenceScopeValidation(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	cases := []models.Preference{
		{Description: "p", Scope: models.ScopeProject},
		{Description: "p", Scope: models.ScopeSectionType},
		{Description: "p", Scope: models.ScopeSpecific, ProjectID: uintPtr(1)},
		{Description: "p", Scope: models.ScopeSpecific, SectionType: models.SectionCode},
		{Description: "p", Scope: "workspace"},
	}
	for _, pref := range cases {
		p := pref
		_, err := store.Create(ctx, &p)
		assert.ErrorIs(t, err, ErrValidation, "scope %q", pref.Scope)
	}

	// The same scopes with their required fields present are accepted.
	_, err := store.Create(ctx, &models.Preference{
		Description: "p", Scope: models.ScopeSpecific,
		ProjectID: uintPtr(1), SectionType: models.SectionCode,
	})
	require.NoError(t, err)
}

func TestApplicableUnionOfScopes(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	mustCreate := func(p models.Preference) models.Preference {
		saved, err := store.Create(ctx, &p)
		require.NoError(t, err)
		return *saved
	}

	global := mustCreate(models.Preference{Description: "global", Confidence: 0.9})
	project := mustCreate(models.Preference{
		Description: "project", Scope: models.ScopeProject, ProjectID: uintPtr(7), Confidence: 0.95,
	})
	byType := mustCreate(models.Preference{
		Description: "code style", Scope: models.ScopeSectionType, SectionType: models.SectionCode, Confidence: 0.7,
	})
	specific := mustCreate(models.Preference{
		Description: "specific", Scope: models.ScopeSpecific,
		ProjectID: uintPtr(7), SectionType: models.SectionCode, Confidence: 0.99,
	})
	// These must never come back for project 7 / code sections.
	mustCreate(models.Preference{
		Description: "other project", Scope: models.ScopeProject, ProjectID: uintPtr(8), Confidence: 0.97,
	})
	mustCreate(models.Preference{
		Description: "title style", Scope: models.ScopeSectionType, SectionType: models.SectionTitle, Confidence: 0.96,
	})
	deactivated := mustCreate(models.Preference{Description: "inactive global", Confidence: 0.98})
	ok, err := store.Deactivate(ctx, deactivated.ID)
	require.NoError(t, err)
	require.True(t, ok)

	prefs, err := store.Applicable(ctx, models.SectionCode, uintPtr(7))
	require.NoError(t, err)
	require.Len(t, prefs, 4)
	assert.Equal(t, specific.ID, prefs[0].ID)
	assert.Equal(t, project.ID, prefs[1].ID)
	assert.Equal(t, global.ID, prefs[2].ID)
	assert.Equal(t, byType.ID, prefs[3].ID)

	// Without a project or section type only global preferences apply.
	globalOnly, err := store.Applicable(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, globalOnly, 1)
	assert.Equal(t, global.ID, globalOnly[0].ID)
}

func TestApplicableEqualConfidenceKeepsScopeOrder(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	g, err := store.Create(ctx, &models.Preference{Description: "global", Confidence: 0.8})
	require.NoError(t, err)
	p, err := store.Create(ctx, &models.Preference{
		Description: "project", Scope: models.ScopeProject, ProjectID: uintPtr(3), Confidence: 0.8,
	})
	require.NoError(t, err)

	// Stable sort: equal confidence keeps global-before-project load order.
	prefs, err := store.Applicable(ctx, "", uintPtr(3))
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, g.ID, prefs[0].ID)
	assert.Equal(t, p.ID, prefs[1].ID)
}

func TestUpdateBumpsPromptVersion(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	pref, err := store.Create(ctx, &models.Preference{Description: "before"})
	require.NoError(t, err)
	require.Equal(t, 1, pref.PromptVersion)

	desc := "after"
	_, err = store.Update(ctx, pref.ID, PreferencePatch{Description: &desc})
	require.NoError(t, err)

	reloaded, err := store.Get(ctx, pref.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", reloaded.Description)
	assert.Equal(t, 2, reloaded.PromptVersion)

	// Toggling activity alone does not change the prompt version.
	inactive := false
	_, err = store.Update(ctx, pref.ID, PreferencePatch{IsActive: &inactive})
	require.NoError(t, err)

	reloaded, err = store.Get(ctx, pref.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, 2, reloaded.PromptVersion)
}

func TestUpdateMissingPreference(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	desc := "x"
	_, err := store.Update(context.Background(), 999, PreferencePatch{Description: &desc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateIsIdempotentSoftDelete(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	pref, err := store.Create(ctx, &models.Preference{Description: "p"})
	require.NoError(t, err)

	ok, err := store.Deactivate(ctx, pref.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Deactivating again still reports success.
	ok, err = store.Deactivate(ctx, pref.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// The row survives as inactive; it is never removed.
	reloaded, err := store.Get(ctx, pref.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	ok, err = store.Deactivate(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfileBuckets(t *testing.T) {
	store := NewPreferenceStore(newTestDB(t))
	ctx := context.Background()

	high, err := store.Create(ctx, &models.Preference{
		Description: "dark code themes", Category: models.CategoryStyle, Confidence: 0.9,
	})
	require.NoError(t, err)
	boundary, err := store.Create(ctx, &models.Preference{
		Description: "at the apply threshold", Category: models.CategoryStyle, Confidence: 0.85,
	})
	require.NoError(t, err)
	suggestion, err := store.Create(ctx, &models.Preference{
		Description: "shorter narration", Category: models.CategoryContent, Confidence: 0.6,
	})
	require.NoError(t, err)
	// Below the suggest floor: recorded but excluded from the profile.
	_, err = store.Create(ctx, &models.Preference{Description: "weak signal", Confidence: 0.49})
	require.NoError(t, err)

	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.Total)
	assert.Equal(t, 2, profile.ByCategory[models.CategoryStyle])
	assert.Equal(t, 3, profile.ByScope[models.ScopeGlobal])

	require.Len(t, profile.HighConfidence, 2)
	assert.Equal(t, high.ID, profile.HighConfidence[0].ID)
	assert.Equal(t, boundary.ID, profile.HighConfidence[1].ID)
	require.Len(t, profile.Suggestions, 1)
	assert.Equal(t, suggestion.ID, profile.Suggestions[0].ID)
}
