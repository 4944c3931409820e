// Package pipeline runs one upload through ingest, scoring, action
// recommendation, and insight composition.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/automation"
	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/ingest"
	"github.com/sells-group/nexus-cli/internal/insights"
	"github.com/sells-group/nexus-cli/internal/model"
	"github.com/sells-group/nexus-cli/internal/scorer"
)

// Pipeline runs analyses. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	cfg *config.Config
	det scorer.Detector
}

// New creates a Pipeline. A nil detector selects the isolation forest
// configured in cfg.Scorer.
func New(cfg *config.Config, det scorer.Detector) *Pipeline {
	if det == nil {
		det = scorer.NewDetector(cfg.Scorer)
	}
	return &Pipeline{cfg: cfg, det: det}
}

// StageResult records how long one stage took.
type StageResult struct {
	Name       string `json:"name" yaml:"name"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Result is everything one run produced.
type Result struct {
	RunID           string                      `json:"run_id"`
	Source          string                      `json:"source"`
	Table           *model.Table                `json:"-"`
	Stats           *ingest.Stats               `json:"ingest"`
	Scored          *scorer.Result              `json:"scored"`
	Recommendations []automation.Recommendation `json:"-"`
	Opportunities   []automation.Opportunity    `json:"opportunities"`
	Insights        []string                    `json:"insights"`
	Stages          []StageResult               `json:"stages"`

	cfg config.ReportConfig
}

// Run analyzes one upload. name supplies the file extension that selects
// the parser. A run either completes or returns an error; typed errors from
// the model package stay reachable with errors.As.
func (p *Pipeline) Run(ctx context.Context, name string, data []byte) (*Result, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID), zap.String("source", name))
	log.Info("pipeline: starting analysis", zap.Int("bytes", len(data)))

	result := &Result{RunID: runID, Source: name, cfg: p.cfg.Report}

	stage := func(stageName string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "pipeline: %s", stageName)
		}
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()
		if err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", stageName),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return eris.Wrapf(err, "pipeline: %s", stageName)
		}
		log.Debug("pipeline: stage complete",
			zap.String("stage", stageName),
			zap.Int64("duration_ms", duration),
		)
		result.Stages = append(result.Stages, StageResult{Name: stageName, DurationMs: duration})
		return nil
	}

	err := stage("ingest", func() error {
		t, stats, err := ingest.LoadWithStats(data, name, ingest.OptionsFromConfig(p.cfg.Ingest))
		if err != nil {
			return err
		}
		result.Table, result.Stats = t, stats
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage("score", func() error {
		scored, err := scorer.New(p.cfg.Scorer, p.det).Score(result.Table)
		if err != nil {
			return err
		}
		result.Scored = scored
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage("recommend", func() error {
		result.Recommendations = automation.Recommend(result.Scored.Rows)
		result.Opportunities = automation.Opportunities(result.Recommendations)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = stage("insights", func() error {
		result.Insights = insights.Compose(result.Scored.Summary)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s := result.Summary()
	log.Info("pipeline: analysis complete",
		zap.Int("records", s.TotalRecords),
		zap.Int("anomalies", s.Anomalies),
		zap.Int("high_risk", s.HighRisk),
		zap.Int("confidence", s.Confidence),
	)
	return result, nil
}

// Summary returns the run's aggregate counts.
func (r *Result) Summary() model.Summary {
	return r.Scored.Summary
}
