package scorer

import (
	"math"

	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/model"
)

// RiskScores averages the absolute z-scores of each row and rescales by the
// largest average so the riskiest row scores 1. When every row averages 0
// every score is 0.
func RiskScores(z [][]float64) []float64 {
	scores := make([]float64, len(z))
	var top float64
	for i, row := range z {
		if len(row) == 0 {
			continue
		}
		var sum float64
		for _, v := range row {
			sum += math.Abs(v)
		}
		scores[i] = sum / float64(len(row))
		if scores[i] > top {
			top = scores[i]
		}
	}
	if top == 0 {
		return scores
	}
	for i := range scores {
		scores[i] /= top
	}
	return scores
}

// TierFor buckets a risk score. Bounds are upper-inclusive: a score equal to
// MediumThreshold is Low and a score equal to HighThreshold is Medium.
func TierFor(score float64, cfg config.ScorerConfig) model.RiskTier {
	switch {
	case score <= cfg.MediumThreshold:
		return model.TierLow
	case score <= cfg.HighThreshold:
		return model.TierMedium
	default:
		return model.TierHigh
	}
}

// Confidence is the fixed model confidence reported for numericCols features.
func Confidence(numericCols int, cfg config.ScorerConfig) int {
	return min(cfg.MaxConfidence, cfg.BaseConfidence+cfg.ConfidencePerCol*numericCols)
}

// Summarize counts anomalies and tiers across rows.
func Summarize(rows []model.ScoredRow, numericCols int, cfg config.ScorerConfig) model.Summary {
	s := model.Summary{
		TotalRecords:   len(rows),
		NumericColumns: numericCols,
		Confidence:     Confidence(numericCols, cfg),
	}
	for _, r := range rows {
		if r.Anomaly == model.FlagAnomaly {
			s.Anomalies++
		}
		switch r.Tier {
		case model.TierHigh:
			s.HighRisk++
		case model.TierMedium:
			s.MediumRisk++
		default:
			s.LowRisk++
		}
	}
	return s
}
