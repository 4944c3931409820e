package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/automation"
	"github.com/sells-group/nexus-cli/internal/model"
	"github.com/sells-group/nexus-cli/internal/pipeline"
)

type page struct {
	Modes  []pipeline.Mode
	Mode   pipeline.Mode
	Error  string
	Result *resultView
}

type tableView struct {
	Header []string
	Rows   [][]string
}

type resultView struct {
	RunID         string
	Source        string
	Rows          int
	Columns       int
	Summary       model.Summary
	Insights      []string
	Tiers         []tierCount
	HighRisk      *tableView
	Opportunities []automation.Opportunity
	Preview       *tableView
}

type tierCount struct {
	Tier  model.RiskTier
	Count int
}

func newPage() page {
	return page{Modes: pipeline.Modes, Mode: pipeline.ModeOverview}
}

func (s *Server) resultView(res *pipeline.Result, mode pipeline.Mode, preview bool) *resultView {
	sum := res.Summary()
	v := &resultView{
		RunID:    res.RunID,
		Source:   res.Source,
		Rows:     res.Table.NumRows(),
		Columns:  res.Table.NumCols(),
		Summary:  sum,
		Insights: res.Insights,
	}

	switch mode {
	case pipeline.ModeRisk:
		hr := &tableView{Header: append([]string{"Row", model.ColRiskScore, model.ColAnomalyFlag}, res.Table.Header()...)}
		for _, row := range res.HighRisk(s.report.HighRiskLimit) {
			cells := []string{fmt.Sprint(row.Index + 1), fmt.Sprintf("%.3f", row.RiskScore), string(row.Anomaly)}
			for _, val := range row.Values {
				cells = append(cells, val.String())
			}
			hr.Rows = append(hr.Rows, cells)
		}
		v.HighRisk = hr
	case pipeline.ModeAutomation:
		v.Opportunities = res.Opportunities
	default:
		v.Tiers = []tierCount{
			{model.TierHigh, sum.HighRisk},
			{model.TierMedium, sum.MediumRisk},
			{model.TierLow, sum.LowRisk},
		}
	}

	if preview {
		t := res.Preview(s.report.PreviewRows)
		pv := &tableView{Header: t.Header()}
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for j, val := range row {
				cells[j] = val.String()
			}
			pv.Rows = append(pv.Rows, cells)
		}
		v.Preview = pv
	}
	return v
}

func (s *Server) renderPage(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		zap.L().Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>NEXUS Decision Intelligence</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
.kpis { display: flex; gap: 1rem; }
.kpi { border: 1px solid #ccc; border-radius: 6px; padding: 0.75rem 1.25rem; }
.kpi b { display: block; font-size: 1.5rem; }
.error { color: #a00; }
table { border-collapse: collapse; margin-top: 0.5rem; }
td, th { border: 1px solid #ddd; padding: 0.25rem 0.5rem; }
</style>
</head>
<body>
<h1>NEXUS</h1>
<p>Decision intelligence and automation for tabular data.</p>

<form method="post" action="/analyze" enctype="multipart/form-data">
  <input type="file" name="file" accept=".csv,.xlsx,.xls" required>
  <select name="mode">
  {{- range .Modes}}
    <option value="{{.}}"{{if eq . $.Mode}} selected{{end}}>{{.Title}}</option>
  {{- end}}
  </select>
  <label><input type="checkbox" name="preview" value="1"> Show raw data preview</label>
  <button type="submit">Analyze</button>
</form>

{{if .Error}}<p class="error">{{.Error}}</p>{{end}}

{{with .Result}}
<p>Data loaded from {{.Source}}: {{.Rows}} rows &times; {{.Columns}} columns (run {{.RunID}})</p>

{{with .Preview}}
<h2>Data Preview</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{end}}

<h2>Executive Dashboard</h2>
<div class="kpis">
  <div class="kpi">Total Records<b>{{.Summary.TotalRecords}}</b></div>
  <div class="kpi">Detected Anomalies<b>{{.Summary.Anomalies}}</b></div>
  <div class="kpi">High Risk Entities<b>{{.Summary.HighRisk}}</b></div>
  <div class="kpi">Confidence Score<b>{{.Summary.Confidence}}%</b></div>
</div>

<h2>Executive Insights</h2>
{{range .Insights}}<p>{{.}}</p>{{end}}

{{if .Tiers}}
<h2>Risk Distribution</h2>
<table>
<tr><th>Tier</th><th>Records</th></tr>
{{range .Tiers}}<tr><td>{{.Tier}}</td><td>{{.Count}}</td></tr>{{end}}
</table>
{{end}}

{{with .HighRisk}}
<h2>High Risk &amp; Anomalous Records</h2>
{{if .Rows}}
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
</table>
{{else}}<p>No high risk records.</p>{{end}}
{{end}}

{{if .Opportunities}}
<h2>Automation Opportunities</h2>
<ul>
{{range .Opportunities}}<li><b>{{.Action}}</b> ({{.Tier}}): {{.Count}} records, {{pct .Share}}</li>{{end}}
</ul>
{{end}}
{{end}}
</body>
</html>
`
