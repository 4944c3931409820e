package model

// Derived column names appended to scored tables and exports.
const (
	ColAnomalyFlag      = "anomaly_flag"
	ColRiskScore        = "risk_score"
	ColRiskTier         = "risk_tier"
	ColAutomationAction = "automation_action"
)

// DerivedColumns lists the columns the pipeline adds to a table. They are
// never used as scoring features, so re-scoring an export is stable.
var DerivedColumns = []string{ColAnomalyFlag, ColRiskScore, ColRiskTier, ColAutomationAction}

// IsDerivedColumn reports whether name is one of the pipeline's output columns.
func IsDerivedColumn(name string) bool {
	for _, d := range DerivedColumns {
		if d == name {
			return true
		}
	}
	return false
}

// AnomalyFlag is the detector's binary label for a row.
type AnomalyFlag string

const (
	FlagNormal  AnomalyFlag = "Normal"
	FlagAnomaly AnomalyFlag = "Anomaly"
)

// RiskTier is the discrete bucket of a risk score.
type RiskTier string

const (
	TierLow    RiskTier = "Low"
	TierMedium RiskTier = "Medium"
	TierHigh   RiskTier = "High"
)

// ScoredRow is a table row extended with the scorer's outputs.
type ScoredRow struct {
	Index     int         `json:"index"`
	Values    []Value     `json:"-"`
	Anomaly   AnomalyFlag `json:"anomaly_flag"`
	RiskScore float64     `json:"risk_score"`
	Tier      RiskTier    `json:"risk_tier"`
}

// Summary aggregates one scoring pass.
type Summary struct {
	TotalRecords   int `json:"total_records" yaml:"total_records"`
	NumericColumns int `json:"numeric_columns" yaml:"numeric_columns"`
	Anomalies      int `json:"anomalies" yaml:"anomalies"`
	HighRisk       int `json:"high_risk" yaml:"high_risk"`
	MediumRisk     int `json:"medium_risk" yaml:"medium_risk"`
	LowRisk        int `json:"low_risk" yaml:"low_risk"`
	Confidence     int `json:"confidence" yaml:"confidence"`
}
