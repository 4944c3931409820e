// Package automation maps risk tiers to operational actions.
package automation

import (
	"fmt"

	"github.com/sells-group/nexus-cli/internal/model"
)

// Action labels, one per risk tier.
const (
	ActionInvestigate = "Immediate Investigation Required"
	ActionMonitor     = "Monitor & Review"
	ActionAutoApprove = "Auto-Approved / No Action Needed"
)

// tierOrder lists tiers from most to least urgent.
var tierOrder = []model.RiskTier{model.TierHigh, model.TierMedium, model.TierLow}

// Action returns the recommended action for a tier. Tiers come from the
// scorer, so an unknown tier is a programming error and panics.
func Action(tier model.RiskTier) string {
	switch tier {
	case model.TierHigh:
		return ActionInvestigate
	case model.TierMedium:
		return ActionMonitor
	case model.TierLow:
		return ActionAutoApprove
	default:
		panic(fmt.Sprintf("automation: unknown risk tier %q", tier))
	}
}

// Recommendation is the action chosen for one scored row.
type Recommendation struct {
	Index     int            `json:"index"`
	Tier      model.RiskTier `json:"risk_tier"`
	RiskScore float64        `json:"risk_score"`
	Action    string         `json:"automation_action"`
}

// Recommend returns one recommendation per row, in row order.
func Recommend(rows []model.ScoredRow) []Recommendation {
	recs := make([]Recommendation, len(rows))
	for i, r := range rows {
		recs[i] = Recommendation{
			Index:     r.Index,
			Tier:      r.Tier,
			RiskScore: r.RiskScore,
			Action:    Action(r.Tier),
		}
	}
	return recs
}

// Opportunity summarizes how many rows land on one action.
type Opportunity struct {
	Tier   model.RiskTier `json:"risk_tier" yaml:"risk_tier"`
	Action string         `json:"action" yaml:"action"`
	Count  int            `json:"count" yaml:"count"`
	Share  float64        `json:"share" yaml:"share"` // fraction of all rows, 0..1
}

// Opportunities counts recommendations per action, ordered from the most
// urgent tier down. Every tier is listed, including those with no rows.
func Opportunities(recs []Recommendation) []Opportunity {
	counts := make(map[model.RiskTier]int, len(tierOrder))
	for _, r := range recs {
		counts[r.Tier]++
	}

	out := make([]Opportunity, 0, len(tierOrder))
	for _, tier := range tierOrder {
		o := Opportunity{Tier: tier, Action: Action(tier), Count: counts[tier]}
		if len(recs) > 0 {
			o.Share = float64(o.Count) / float64(len(recs))
		}
		out = append(out, o)
	}
	return out
}
