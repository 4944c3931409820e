// Package insights composes the fixed narrative shown next to a risk summary.
package insights

import (
	"fmt"
	"strings"

	"github.com/sells-group/nexus-cli/internal/model"
)

// Compose returns the summary sentences for s, in display order.
func Compose(s model.Summary) []string {
	return []string{
		fmt.Sprintf("The dataset contains %d anomalous records requiring attention.", s.Anomalies),
		fmt.Sprintf("%d entities are classified as high risk and may impact operations.", s.HighRisk),
		"Prioritize high-risk entities and automate low-risk processes.",
		"Continuous monitoring is advised to reduce operational risk and improve efficiency.",
	}
}

// Markdown renders the insights as paragraphs separated by blank lines.
func Markdown(s model.Summary) string {
	return strings.Join(Compose(s), "\n\n")
}
