package feedback

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/models"
)

// Confidence thresholds for the two-tier application policy. Preferences at
// or above SilentApplyThreshold are injected into prompts without review;
// those in [SuggestThreshold, SilentApplyThreshold) are surfaced as
// suggestions; anything below is recorded only.
const (
	SilentApplyThreshold = 0.85
	SuggestThreshold     = 0.50
)

// PreferenceStore is the CRUD layer over inferred and declared preferences.
type PreferenceStore struct {
	db *gorm.DB
}

func NewPreferenceStore(db *gorm.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// PreferenceQuery narrows a Query call. Zero-valued fields are ignored.
// Inactive preferences are excluded unless IncludeInactive is set.
type PreferenceQuery struct {
	Scope           string
	Category        string
	SectionType     string
	MinConfidence   float64
	IncludeInactive bool
}

// Create validates scope consistency and persists the preference. Declared
// preferences with no confidence default to 0.5.
func (s *PreferenceStore) Create(ctx context.Context, pref *models.Preference) (*models.Preference, error) {
	if pref.Scope == "" {
		pref.Scope = models.ScopeGlobal
	}
	if err := pref.ValidateScope(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if pref.Confidence == 0 {
		pref.Confidence = 0.5
	}
	if pref.PromptVersion == 0 {
		pref.PromptVersion = 1
	}
	pref.IsActive = true

	if err := s.db.WithContext(ctx).Create(pref).Error; err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}
	return pref, nil
}

// Get loads a single preference by id.
func (s *PreferenceStore) Get(ctx context.Context, id uint) (*models.Preference, error) {
	var pref models.Preference
	if err := s.db.WithContext(ctx).First(&pref, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: preference %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	return &pref, nil
}

// Query returns preferences matching the filter, ordered by confidence
// descending.
func (s *PreferenceStore) Query(ctx context.Context, q PreferenceQuery) ([]models.Preference, error) {
	query := s.db.WithContext(ctx).Model(&models.Preference{})

	if q.Scope != "" {
		query = query.Where("scope = ?", q.Scope)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.SectionType != "" {
		query = query.Where("section_type = ?", q.SectionType)
	}
	if q.MinConfidence > 0 {
		query = query.Where("confidence >= ?", q.MinConfidence)
	}
	if !q.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	var prefs []models.Preference
	if err := query.Order("confidence DESC").Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	return prefs, nil
}

// Applicable returns the active preferences that apply to a generation
// context, as the union of four scope-exclusive lookups: global (always),
// project-scoped (when projectID is given), section-type-scoped (when
// sectionType is given), and specific (when both are given). The union is
// concatenated in that order and stable-sorted by confidence descending, so
// equal-confidence ties keep retrieval order.
func (s *PreferenceStore) Applicable(ctx context.Context, sectionType string, projectID *uint) ([]models.Preference, error) {
	var all []models.Preference

	load := func(dest *[]models.Preference, conds map[string]interface{}) error {
		return s.db.WithContext(ctx).
			Where("is_active = ?", true).
			Where(conds).
			Find(dest).Error
	}

	var global []models.Preference
	if err := load(&global, map[string]interface{}{"scope": models.ScopeGlobal}); err != nil {
		return nil, fmt.Errorf("failed to load global preferences: %w", err)
	}
	all = append(all, global...)

	if projectID != nil {
		var project []models.Preference
		err := load(&project, map[string]interface{}{
			"scope":      models.ScopeProject,
			"project_id": *projectID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load project preferences: %w", err)
		}
		all = append(all, project...)
	}

	if sectionType != "" {
		var byType []models.Preference
		err := load(&byType, map[string]interface{}{
			"scope":        models.ScopeSectionType,
			"section_type": sectionType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load section-type preferences: %w", err)
		}
		all = append(all, byType...)
	}

	if projectID != nil && sectionType != "" {
		var specific []models.Preference
		err := load(&specific, map[string]interface{}{
			"scope":        models.ScopeSpecific,
			"project_id":   *projectID,
			"section_type": sectionType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load specific preferences: %w", err)
		}
		all = append(all, specific...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Confidence > all[j].Confidence
	})
	return all, nil
}

// PreferencePatch is a partial update; nil fields are left untouched.
type PreferencePatch struct {
	Description *string  `json:"description,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// Update applies a partial patch to a preference. Changing the description or
// confidence bumps the prompt version, since the preference set fed into
// future prompts changes with it.
func (s *PreferenceStore) Update(ctx context.Context, id uint, patch PreferencePatch) (*models.Preference, error) {
	pref, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Confidence != nil {
		updates["confidence"] = *patch.Confidence
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if len(updates) == 0 {
		return pref, nil
	}
	if patch.Description != nil || patch.Confidence != nil {
		updates["prompt_version"] = pref.PromptVersion + 1
	}

	err = s.db.WithContext(ctx).Model(pref).Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update preference: %w", err)
	}
	return pref, nil
}

// Deactivate soft-deletes a preference. It reports success as long as the id
// exists, even when the preference is already inactive; rows are never
// removed physically.
func (s *PreferenceStore) Deactivate(ctx context.Context, id uint) (bool, error) {
	var pref models.Preference
	if err := s.db.WithContext(ctx).First(&pref, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load preference: %w", err)
	}

	err := s.db.WithContext(ctx).Model(&pref).Update("is_active", false).Error
	if err != nil {
		return false, fmt.Errorf("failed to deactivate preference: %w", err)
	}
	return true, nil
}

// ProfileEntry is a preference summarized for the profile view.
type ProfileEntry struct {
	ID          uint    `json:"id"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Profile summarizes the active preference set at or above the suggest floor.
type Profile struct {
	Total          int            `json:"total_preferences"`
	ByCategory     map[string]int `json:"by_category"`
	ByScope        map[string]int `json:"by_scope"`
	HighConfidence []ProfileEntry `json:"high_confidence"`
	Suggestions    []ProfileEntry `json:"suggestions"`
}

// Profile computes the user's preference profile over active preferences with
// confidence >= SuggestThreshold, bucketing them into the silent-apply tier
// and the suggestion tier.
func (s *PreferenceStore) Profile(ctx context.Context) (*Profile, error) {
	prefs, err := s.Query(ctx, PreferenceQuery{MinConfidence: SuggestThreshold})
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Total:          len(prefs),
		ByCategory:     make(map[string]int),
		ByScope:        make(map[string]int),
		HighConfidence: []ProfileEntry{},
		Suggestions:    []ProfileEntry{},
	}

	for _, pref := range prefs {
		category := pref.Category
		if category == "" {
			category = "unknown"
		}
		scope := pref.Scope
		if scope == "" {
			scope = "unknown"
		}
		profile.ByCategory[category]++
		profile.ByScope[scope]++

		entry := ProfileEntry{
			ID:          pref.ID,
			Description: pref.Description,
			Confidence:  pref.Confidence,
		}
		if pref.Confidence >= SilentApplyThreshold {
			profile.HighConfidence = append(profile.HighConfidence, entry)
		} else {
			profile.Suggestions = append(profile.Suggestions, entry)
		}
	}
	return profile, nil
}
