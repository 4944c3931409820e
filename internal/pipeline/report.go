package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nexus-cli/internal/automation"
	"github.com/sells-group/nexus-cli/internal/insights"
	"github.com/sells-group/nexus-cli/internal/model"
)

// Mode selects which view a report renders after the summary and insights.
type Mode string

const (
	ModeOverview   Mode = "overview"
	ModeRisk       Mode = "risk"
	ModeAutomation Mode = "automation"
)

// Modes lists every report mode in display order.
var Modes = []Mode{ModeOverview, ModeRisk, ModeAutomation}

// Title returns the heading shown for the mode.
func (m Mode) Title() string {
	switch m {
	case ModeRisk:
		return "Risk & Anomalies"
	case ModeAutomation:
		return "Automation Opportunities"
	default:
		return "Executive Overview"
	}
}

// ParseMode accepts a mode name or its title, case-insensitively. An empty
// string selects the overview.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModeOverview, nil
	}
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, m.Title()) {
			return m, nil
		}
	}
	return "", eris.Errorf("pipeline: unknown report mode %q (want overview, risk or automation)", s)
}

// HighRisk returns the High tier rows ordered by risk score, highest first,
// keeping at most limit rows. limit <= 0 uses the configured report limit.
func (r *Result) HighRisk(limit int) []model.ScoredRow {
	if limit <= 0 {
		limit = r.cfg.HighRiskLimit
	}
	var rows []model.ScoredRow
	for _, row := range r.Scored.Rows {
		if row.Tier == model.TierHigh {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RiskScore > rows[j].RiskScore
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// Preview returns the first n cleaned rows. n <= 0 uses the configured
// preview size.
func (r *Result) Preview(n int) *model.Table {
	if n <= 0 {
		n = r.cfg.PreviewRows
	}
	return r.Table.Head(n)
}

// Record is a scored row with its cell values keyed by column name.
type Record struct {
	Index     int               `json:"index" yaml:"index"`
	RiskScore float64           `json:"risk_score" yaml:"risk_score"`
	Anomaly   model.AnomalyFlag `json:"anomaly_flag" yaml:"anomaly_flag"`
	Tier      model.RiskTier    `json:"risk_tier" yaml:"risk_tier"`
	Action    string            `json:"automation_action" yaml:"automation_action"`
	Fields    map[string]string `json:"fields" yaml:"fields"`
}

// Digest is the compact, serializable outcome of a run.
type Digest struct {
	RunID         string                   `json:"run_id" yaml:"run_id"`
	Source        string                   `json:"source" yaml:"source"`
	Summary       model.Summary            `json:"summary" yaml:"summary"`
	Features      []string                 `json:"features" yaml:"features"`
	Insights      []string                 `json:"insights" yaml:"insights"`
	HighRisk      []Record                 `json:"high_risk" yaml:"high_risk"`
	Opportunities []automation.Opportunity `json:"opportunities" yaml:"opportunities"`
	Stages        []StageResult            `json:"stages" yaml:"stages"`
}

// Digest builds the run digest with at most limit high-risk records.
func (r *Result) Digest(limit int) Digest {
	d := Digest{
		RunID:         r.RunID,
		Source:        r.Source,
		Summary:       r.Summary(),
		Features:      r.Scored.Features,
		Insights:      r.Insights,
		HighRisk:      []Record{},
		Opportunities: r.Opportunities,
		Stages:        r.Stages,
	}
	for _, row := range r.HighRisk(limit) {
		d.HighRisk = append(d.HighRisk, r.record(row))
	}
	return d
}

func (r *Result) record(row model.ScoredRow) Record {
	fields := make(map[string]string, len(r.Table.Columns))
	for j, c := range r.Table.Columns {
		fields[c.Name] = row.Values[j].String()
	}
	return Record{
		Index:     row.Index,
		RiskScore: row.RiskScore,
		Anomaly:   row.Anomaly,
		Tier:      row.Tier,
		Action:    r.Recommendations[row.Index].Action,
		Fields:    fields,
	}
}

// FormatReport renders a markdown report: summary KPIs, insights, and the
// view selected by mode.
func (r *Result) FormatReport(mode Mode) string {
	var b strings.Builder
	s := r.Summary()

	fmt.Fprintf(&b, "# NEXUS Report: %s\n", r.Source)
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Mode: %s\n\n", mode.Title())

	// Summary.
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Total records: %d\n", s.TotalRecords)
	fmt.Fprintf(&b, "- Detected anomalies: %d\n", s.Anomalies)
	fmt.Fprintf(&b, "- High risk entities: %d\n", s.HighRisk)
	fmt.Fprintf(&b, "- Confidence: %d%%\n", s.Confidence)
	fmt.Fprintf(&b, "- Features: %s\n\n", strings.Join(r.Scored.Features, ", "))

	b.WriteString("## Insights\n\n")
	b.WriteString(insights.Markdown(s))
	b.WriteString("\n\n")

	switch mode {
	case ModeRisk:
		r.writeHighRisk(&b)
	case ModeAutomation:
		r.writeOpportunities(&b)
	default:
		r.writeTiers(&b)
	}
	return b.String()
}

func (r *Result) writeTiers(b *strings.Builder) {
	s := r.Summary()
	b.WriteString("## Risk Distribution\n")
	b.WriteString("| Tier | Records |\n|---|---|\n")
	fmt.Fprintf(b, "| %s | %d |\n", model.TierHigh, s.HighRisk)
	fmt.Fprintf(b, "| %s | %d |\n", model.TierMedium, s.MediumRisk)
	fmt.Fprintf(b, "| %s | %d |\n", model.TierLow, s.LowRisk)
}

func (r *Result) writeHighRisk(b *strings.Builder) {
	rows := r.HighRisk(0)
	b.WriteString("## High Risk & Anomalous Records\n")
	if len(rows) == 0 {
		b.WriteString("No high risk records.\n")
		return
	}

	header := append([]string{"Row", model.ColRiskScore, model.ColAnomalyFlag}, r.Table.Header()...)
	fmt.Fprintf(b, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(b, "|%s\n", strings.Repeat("---|", len(header)))
	for _, row := range rows {
		cells := []string{fmt.Sprint(row.Index + 1), fmt.Sprintf("%.3f", row.RiskScore), string(row.Anomaly)}
		for _, v := range row.Values {
			cells = append(cells, escapeCell(v.String()))
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}

func (r *Result) writeOpportunities(b *strings.Builder) {
	b.WriteString("## Automation Opportunities\n")
	for _, o := range r.Opportunities {
		fmt.Fprintf(b, "- **%s** (%s): %d records, %.1f%%\n", o.Action, o.Tier, o.Count, o.Share*100)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
