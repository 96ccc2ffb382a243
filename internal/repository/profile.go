// Package repository provides PostgreSQL-backed persistence for user
// medical profiles.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
)

// ProfileRepository handles user profile persistence. Profiles are stored
// as one JSON document per session; updates apply shallow merge semantics
// in application code before the row is rewritten.
type ProfileRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *pgxpool.Pool, logger *logrus.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:  db,
		log: logger,
	}
}

// Get retrieves the profile for a session.
func (r *ProfileRepository) Get(ctx context.Context, sessionID string) (*domain.UserProfile, error) {
	query := `
		SELECT payload
		FROM user_profiles
		WHERE session_id = $1`

	var payload []byte
	err := r.db.QueryRow(ctx, query, sessionID).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err,
		}).Error("Failed to get user profile")
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &profile, nil
}

// Update applies a shallow merge of the partial profile onto the stored
// one and persists the result: set fields overwrite, unset fields are
// retained. The merged profile is returned.
func (r *ProfileRepository) Update(ctx context.Context, sessionID string, partial *domain.UserProfile) (*domain.UserProfile, error) {
	current, err := r.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		current = &domain.UserProfile{}
	}

	merged := MergeProfiles(current, partial)

	payload, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}

	query := `
		INSERT INTO user_profiles (session_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	if _, err := r.db.Exec(ctx, query, sessionID, payload); err != nil {
		r.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err,
		}).Error("Failed to update user profile")
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"session_id":      sessionID,
		"condition_count": len(merged.MedicalConditions),
		"allergy_count":   len(merged.Allergies),
	}).Info("User profile updated")

	return merged, nil
}

// MergeProfiles applies shallow merge semantics: a zero-valued field in
// the partial profile keeps the current value, anything else overwrites.
func MergeProfiles(current, partial *domain.UserProfile) *domain.UserProfile {
	merged := *current
	if partial == nil {
		return &merged
	}

	if partial.Age != 0 {
		merged.Age = partial.Age
	}
	if partial.HeightCm != 0 {
		merged.HeightCm = partial.HeightCm
	}
	if partial.WeightKg != 0 {
		merged.WeightKg = partial.WeightKg
	}
	if partial.MedicalConditions != nil {
		merged.MedicalConditions = partial.MedicalConditions
	}
	if partial.Allergies != nil {
		merged.Allergies = partial.Allergies
	}
	if partial.Medications != nil {
		merged.Medications = partial.Medications
	}
	return &merged
}
