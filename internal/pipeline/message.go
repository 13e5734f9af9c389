package pipeline

import (
	"fmt"
	"strings"

	"github.com/initial69/Automatic-Pipeline/internal/model"
)

// FormatMessage renders one analysis as the Telegram Markdown message the
// publisher sends. The publisher is responsible for falling back to plain
// text when Telegram rejects the markup.
func FormatMessage(a model.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s*\n\n", importanceEmoji(a.Importance), escapeMarkdown(a.ProjectName))
	if a.OpportunityType != "" {
		fmt.Fprintf(&b, "Type: %s\n", escapeMarkdown(a.OpportunityType))
	}
	fmt.Fprintf(&b, "Importance: %s | Score: %d/100\n", a.Importance, a.Score)
	if a.RiskLevel != "" {
		fmt.Fprintf(&b, "Risk: %s\n", escapeMarkdown(a.RiskLevel))
	}
	if a.Timeline != "" {
		fmt.Fprintf(&b, "Timeline: %s\n", escapeMarkdown(a.Timeline))
	}
	if a.InvestmentAngle != "" {
		fmt.Fprintf(&b, "\n%s\n", escapeMarkdown(a.InvestmentAngle))
	}
	if a.MarketImpact != "" {
		fmt.Fprintf(&b, "\nImpact: %s\n", escapeMarkdown(a.MarketImpact))
	}

	if link := a.EvidenceLink(); link != "" {
		fmt.Fprintf(&b, "\n[%s](%s)\n", escapeMarkdown(sourceLabel(a)), link)
	}
	return strings.TrimSpace(b.String())
}

func sourceLabel(a model.Analysis) string {
	if a.Source != "" {
		return a.Source
	}
	return "source"
}

func importanceEmoji(importance model.Importance) string {
	switch importance {
	case model.ImportanceCritical:
		return "🚨"
	case model.ImportanceHigh:
		return "🔥"
	case model.ImportanceMedium:
		return "📈"
	default:
		return "ℹ️"
	}
}

// escapeMarkdown neutralizes the characters Telegram's legacy Markdown mode
// treats as formatting.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
