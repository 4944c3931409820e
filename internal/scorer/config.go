// Package scorer standardizes numeric features, labels anomalies with an
// isolation forest, and turns the result into risk scores and tiers.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nexus-cli/internal/config"
)

// MinScoringFeatures is the fewest numeric columns a table can be scored on.
// min_features may raise it but never lower it.
const MinScoringFeatures = 2

// DefaultScorerConfig returns a config.ScorerConfig with sensible defaults.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		// Detector.
		Contamination: 0.02,
		Trees:         200,
		MaxSamples:    256,
		Seed:          42,
		MinFeatures:   MinScoringFeatures,

		// Tiers (upper-inclusive).
		MediumThreshold: 0.4,
		HighThreshold:   0.7,

		// Confidence = min(max, base + per_column * numeric columns).
		BaseConfidence:   70,
		ConfidencePerCol: 5,
		MaxConfidence:    95,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	// Detector.
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		errs = append(errs, fmt.Sprintf("contamination must be in (0, 0.5], got %g", c.Contamination))
	}
	if c.Trees < 1 {
		errs = append(errs, "trees must be >= 1")
	}
	if c.MaxSamples < 2 {
		errs = append(errs, "max_samples must be >= 2")
	}
	if c.MinFeatures < MinScoringFeatures {
		errs = append(errs, fmt.Sprintf("min_features must be >= %d", MinScoringFeatures))
	}

	// Tiers.
	if c.MediumThreshold < 0 || c.MediumThreshold > 1 {
		errs = append(errs, "medium_threshold must be between 0 and 1")
	}
	if c.HighThreshold < 0 || c.HighThreshold > 1 {
		errs = append(errs, "high_threshold must be between 0 and 1")
	}
	if c.HighThreshold < c.MediumThreshold {
		errs = append(errs, "high_threshold must be >= medium_threshold")
	}

	// Confidence.
	if c.BaseConfidence < 0 || c.ConfidencePerCol < 0 {
		errs = append(errs, "confidence terms must be >= 0")
	}
	if c.MaxConfidence < c.BaseConfidence || c.MaxConfidence > 100 {
		errs = append(errs, "max_confidence must be between base_confidence and 100")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
