// Package settings stores the similarity policy and loads it with defaults.
package settings

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/steveyegge/dupwatch/internal/logger"
)

// Setting keys shared with the settings editor.
const (
	KeySimilarityIndex    = "SimilarityIndex"
	KeyIncludeTitle       = "IncludeTitle"
	KeyIncludeDescription = "IncludeDescription"
	KeySameType           = "SameType"
)

// Scope partitions stored values, mirroring the host's extension data scopes.
type Scope string

const (
	ScopeDefault Scope = "Default"
	ScopeUser    Scope = "User"
)

// Store is the settings collaborator.
type Store interface {
	// GetValue returns the stored value and whether one exists.
	GetValue(ctx context.Context, key string, scope Scope) (string, bool, error)
	// SetValue persists value and returns what was stored.
	SetValue(ctx context.Context, key, value string, scope Scope) (string, error)
}

// Policy is the active similarity configuration for one check.
// It is read once per check and not modified while the check runs.
type Policy struct {
	// Threshold is the minimum combined score (0.0-1.0) that marks a duplicate
	// Default: 0.8
	Threshold float64

	// IncludeTitle compares titles
	// Default: true
	IncludeTitle bool

	// IncludeDescription compares descriptions
	// Default: true
	IncludeDescription bool

	// SameType restricts candidates to items of the current item's type
	// Default: true
	SameType bool
}

// DefaultPolicy returns the policy used for any setting that was never saved.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:          0.8,
		IncludeTitle:       true,
		IncludeDescription: true,
		SameType:           true,
	}
}

// Validate checks if the policy has valid values
func (p Policy) Validate() error {
	if !validThreshold(p.Threshold) {
		return fmt.Errorf("threshold must be between 0.0 and 1.0 (got %.2f)", p.Threshold)
	}
	return nil
}

// Fields names the compared fields for messages: "title", "description" or
// "title and description". Empty when no field is compared.
func (p Policy) Fields() string {
	switch {
	case p.IncludeTitle && p.IncludeDescription:
		return "title and description"
	case p.IncludeTitle:
		return "title"
	case p.IncludeDescription:
		return "description"
	default:
		return ""
	}
}

// String returns a human-readable representation of the policy
func (p Policy) String() string {
	return fmt.Sprintf("Policy{Threshold: %.2f, Title: %t, Description: %t, SameType: %t}",
		p.Threshold, p.IncludeTitle, p.IncludeDescription, p.SameType)
}

// LoadOrDefault reads every policy setting from store. A setting that was never
// saved gets its default, which is written back so the editor shows it.
// A stored value that cannot be parsed is an error.
func LoadOrDefault(ctx context.Context, store Store, scope Scope) (Policy, error) {
	policy := DefaultPolicy()

	if err := loadFloat(ctx, store, scope, KeySimilarityIndex, &policy.Threshold); err != nil {
		return policy, err
	}
	if err := loadBool(ctx, store, scope, KeyIncludeTitle, &policy.IncludeTitle); err != nil {
		return policy, err
	}
	if err := loadBool(ctx, store, scope, KeyIncludeDescription, &policy.IncludeDescription); err != nil {
		return policy, err
	}
	if err := loadBool(ctx, store, scope, KeySameType, &policy.SameType); err != nil {
		return policy, err
	}

	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("invalid stored policy: %w", err)
	}
	return policy, nil
}

// Save writes every field of policy to store.
func Save(ctx context.Context, store Store, scope Scope, policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	values := []struct{ key, value string }{
		{KeySimilarityIndex, formatFloat(policy.Threshold)},
		{KeyIncludeTitle, strconv.FormatBool(policy.IncludeTitle)},
		{KeyIncludeDescription, strconv.FormatBool(policy.IncludeDescription)},
		{KeySameType, strconv.FormatBool(policy.SameType)},
	}
	for _, v := range values {
		if _, err := store.SetValue(ctx, v.key, v.value, scope); err != nil {
			return fmt.Errorf("failed to save %s: %w", v.key, err)
		}
	}
	return nil
}

// Keys lists every policy setting in display order.
func Keys() []string {
	return []string{KeySimilarityIndex, KeyIncludeTitle, KeyIncludeDescription, KeySameType}
}

// ValidateValue checks value against the type of key before it is stored.
func ValidateValue(key, value string) error {
	switch key {
	case KeySimilarityIndex:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if !validThreshold(v) {
			return fmt.Errorf("%s must be between 0.0 and 1.0 (got %s)", key, value)
		}
	case KeyIncludeTitle, KeyIncludeDescription, KeySameType:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}

// validThreshold rejects NaN, which fails every range comparison.
func validThreshold(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0.0 && v <= 1.0
}

// loadFloat reads a float setting, writing back *dest when it is absent
func loadFloat(ctx context.Context, store Store, scope Scope, key string, dest *float64) error {
	raw, ok, err := store.GetValue(ctx, key, scope)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return writeDefault(ctx, store, scope, key, formatFloat(*dest))
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// loadBool reads a bool setting, writing back *dest when it is absent
func loadBool(ctx context.Context, store Store, scope Scope, key string, dest *bool) error {
	raw, ok, err := store.GetValue(ctx, key, scope)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return writeDefault(ctx, store, scope, key, strconv.FormatBool(*dest))
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func writeDefault(ctx context.Context, store Store, scope Scope, key, value string) error {
	logger.FromContext(ctx).Debug("Initializing setting with default", "key", key, "value", value, "scope", scope)
	if _, err := store.SetValue(ctx, key, value, scope); err != nil {
		return fmt.Errorf("failed to persist default for %s: %w", key, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
