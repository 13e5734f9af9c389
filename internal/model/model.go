// Package model holds the domain types shared across pipeline stages.
package model

import (
	"strings"
	"time"
)

// Channel tags the kind of origin a signal came from.
type Channel string

const (
	ChannelGitHub   Channel = "github"
	ChannelRSS      Channel = "rss"
	ChannelTelegram Channel = "telegram"
)

// Signal is one observed external event prior to scoring. Identity is not a
// single field: the collection tracker derives several normalized keys from
// source, link and title (see normalize.IdentityKeys).
type Signal struct {
	Source   string    `json:"source"`
	Title    string    `json:"title"`
	Link     string    `json:"link,omitempty"`
	Content  string    `json:"content,omitempty"`
	Time     time.Time `json:"time"`
	Channel  Channel   `json:"channel"`
	Category string    `json:"category,omitempty"`
	Priority int       `json:"priority"`
}

// Importance grades an analysis.
type Importance string

const (
	ImportanceCritical Importance = "Critical"
	ImportanceHigh     Importance = "High"
	ImportanceMedium   Importance = "Medium"
	ImportanceLow      Importance = "Low"
)

// Analysis is an LLM-produced judgment of one or more signals. The orchestrator
// enriches it with Source/Title/Link/Content/URLKey from the matching signal
// before it reaches the dedup tracker.
type Analysis struct {
	ProjectName     string     `json:"project_name"`
	OpportunityType string     `json:"opportunity_type"`
	Importance      Importance `json:"importance"`
	InvestmentAngle string     `json:"investment_angle"`
	RiskLevel       string     `json:"risk_level"`
	Evidence        []string   `json:"evidence"`
	Score           int        `json:"score"`
	MarketImpact    string     `json:"market_impact,omitempty"`
	Timeline        string     `json:"timeline,omitempty"`

	// Enriched by the orchestrator from the originating signal.
	Source  string `json:"source,omitempty"`
	Title   string `json:"title,omitempty"`
	Link    string `json:"link,omitempty"`
	Content string `json:"content,omitempty"`
	URLKey  string `json:"url_key,omitempty"`
}

// EvidenceLink returns the canonical back-link to the originating signal.
func (a *Analysis) EvidenceLink() string {
	if len(a.Evidence) == 0 {
		return ""
	}
	return strings.TrimSpace(a.Evidence[0])
}

// DerivePriority ranks a signal for ordering within a batch. Release events
// outrank chatter; keyword hits bump the rest.
func DerivePriority(s Signal) int {
	priority := 0
	switch s.Channel {
	case ChannelGitHub:
		priority = 3
	case ChannelRSS:
		priority = 2
	case ChannelTelegram:
		priority = 1
	}

	text := strings.ToLower(s.Title + " " + s.Content)
	for _, kw := range priorityKeywords {
		if strings.Contains(text, kw) {
			priority++
			break
		}
	}
	return priority
}

var priorityKeywords = []string{
	"mainnet",
	"listing",
	"airdrop",
	"token launch",
	"partnership",
	"hack",
	"exploit",
}
