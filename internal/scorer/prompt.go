package scorer

import (
	"fmt"
	"strings"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

// buildPrompt renders the signal batch as a numbered digest with explicit
// output instructions. The schema fields are spelled out in the prompt so
// validation failures mean the model ignored instructions, not guessed.
func buildPrompt(signals []model.Signal) string {
	var b strings.Builder

	b.WriteString(`You are a crypto market analyst. Review the signals below and identify investment-relevant events: launches, listings, upgrades, partnerships, exploits.

For each relevant signal produce one JSON object with these fields:
- "project_name": the project or protocol name
- "opportunity_type": short label, e.g. "mainnet launch", "exchange listing", "exploit"
- "importance": one of "Critical", "High", "Medium", "Low"
- "investment_angle": one or two sentences on why this matters
- "risk_level": short risk assessment
- "evidence": array with the signal's link as the first element
- "score": integer 0-100, how actionable this is
- "market_impact": optional, expected market effect
- "timeline": optional, when this becomes relevant

Skip signals that are noise (routine commits, reposts, marketing fluff).
Respond with ONLY a JSON array of these objects, no prose.

Signals:

`)

	for i, sig := range signals {
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n", i+1, sig.Channel, sig.Source, sig.Title)
		if sig.Link != "" {
			fmt.Fprintf(&b, "   Link: %s\n", sig.Link)
		}
		if sig.Content != "" {
			fmt.Fprintf(&b, "   %s\n", sig.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}
