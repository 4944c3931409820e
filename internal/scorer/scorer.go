package scorer

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/config"
	"github.com/sells-group/nexus-cli/internal/model"
)

// Scorer turns a cleaned table into scored rows and a summary.
type Scorer struct {
	cfg config.ScorerConfig
	det Detector
}

// New creates a Scorer. A nil detector selects the default isolation forest.
func New(cfg config.ScorerConfig, det Detector) *Scorer {
	if det == nil {
		det = NewDetector(cfg)
	}
	return &Scorer{cfg: cfg, det: det}
}

// Result is the output of one scoring pass.
type Result struct {
	Table    *model.Table      `json:"-"`
	Features []string          `json:"features"`
	Rows     []model.ScoredRow `json:"-"`
	Summary  model.Summary     `json:"summary"`
}

// Features returns the indexes of the numeric columns used for scoring.
// Columns produced by an earlier run are skipped.
func Features(t *model.Table) []int {
	var idx []int
	for _, j := range t.NumericColumns() {
		if !model.IsDerivedColumn(t.Columns[j].Name) {
			idx = append(idx, j)
		}
	}
	return idx
}

// Score labels, scores, and tiers every row of t. t must have no missing
// cells in its numeric columns.
func (s *Scorer) Score(t *model.Table) (*Result, error) {
	start := time.Now()

	features := Features(t)
	minFeatures := max(s.cfg.MinFeatures, MinScoringFeatures)
	if len(features) < minFeatures {
		return nil, &model.InsufficientFeaturesError{Found: len(features), Required: minFeatures}
	}

	x := make([][]float64, t.NumRows())
	for i, row := range t.Rows {
		x[i] = make([]float64, len(features))
		for k, j := range features {
			if row[j].Kind != model.KindNumber {
				return nil, &model.InsufficientDataError{
					Column: t.Columns[j].Name,
					Reason: "row " + strconv.Itoa(i) + " has no numeric value",
				}
			}
			x[i][k] = row[j].Num
		}
	}

	z := Standardize(x)
	labels, err := s.det.FitAndLabel(z, s.cfg.Contamination, s.cfg.Seed)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: detect anomalies")
	}
	if len(labels) != len(z) {
		return nil, eris.Errorf("scorer: detector returned %d labels for %d rows", len(labels), len(z))
	}

	risk := RiskScores(z)
	rows := make([]model.ScoredRow, len(z))
	for i := range rows {
		flag := model.FlagNormal
		if labels[i] {
			flag = model.FlagAnomaly
		}
		rows[i] = model.ScoredRow{
			Index:     i,
			Values:    t.Rows[i],
			Anomaly:   flag,
			RiskScore: risk[i],
			Tier:      TierFor(risk[i], s.cfg),
		}
	}

	names := make([]string, len(features))
	for k, j := range features {
		names[k] = t.Columns[j].Name
	}

	res := &Result{
		Table:    t,
		Features: names,
		Rows:     rows,
		Summary:  Summarize(rows, len(features), s.cfg),
	}

	zap.L().Debug("scorer: table scored",
		zap.Int("rows", len(rows)),
		zap.Strings("features", names),
		zap.Int("anomalies", res.Summary.Anomalies),
		zap.Int("high_risk", res.Summary.HighRisk),
		zap.Duration("elapsed", time.Since(start)),
	)

	return res, nil
}

// Augmented returns a new table holding the scored table's columns followed
// by anomaly_flag, risk_score, and risk_tier. Derived columns already present
// in the input are replaced by this run's values. r.Table is not modified.
func (r *Result) Augmented() *model.Table {
	var keep []int
	for j, c := range r.Table.Columns {
		if !model.IsDerivedColumn(c.Name) {
			keep = append(keep, j)
		}
	}

	out := &model.Table{
		Columns: make([]model.Column, 0, len(keep)+3),
		Rows:    make([][]model.Value, len(r.Rows)),
	}
	for _, j := range keep {
		out.Columns = append(out.Columns, r.Table.Columns[j])
	}
	out.Columns = append(out.Columns,
		model.Column{Name: model.ColAnomalyFlag, Kind: model.ColumnText},
		model.Column{Name: model.ColRiskScore, Kind: model.ColumnNumeric},
		model.Column{Name: model.ColRiskTier, Kind: model.ColumnText},
	)

	for i, sr := range r.Rows {
		row := make([]model.Value, 0, len(out.Columns))
		for _, j := range keep {
			row = append(row, r.Table.Rows[i][j])
		}
		row = append(row,
			model.Text(string(sr.Anomaly)),
			model.Number(sr.RiskScore),
			model.Text(string(sr.Tier)),
		)
		out.Rows[i] = row
	}
	return out
}
