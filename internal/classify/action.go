package classify

import (
	"tidereport/internal/blocklist"
	"tidereport/internal/domain"
)

// Signals is everything the action decision looks at for one indicator.
type Signals struct {
	Indicator  string
	Active     domain.ThreatSummary
	History    domain.ThreatSummary
	Categories []string
	Lists      blocklist.Lists

	// SkipChecksOnActiveFailure stops category and country checks for an
	// indicator whose active lookup failed.
	SkipChecksOnActiveFailure bool
}

// Decide picks the action label. The first matching rule wins:
// active threat, historical threat, blocked category, blocked country.
// A failed lookup never counts as a hit.
func Decide(s Signals) domain.Action {
	switch {
	case s.Active.Hits():
		return domain.ActionActive
	case s.History.Hits():
		return domain.ActionNotActive
	case s.Active.Failed() && s.SkipChecksOnActiveFailure:
		return domain.ActionNone
	case blocklist.MatchCategory(s.Categories, s.Lists.Categories):
		return domain.ActionCategoryBlock
	case blocklist.MatchCountry(s.Indicator, s.Lists.CountryCodes):
		return domain.ActionCountryBlock
	default:
		return domain.ActionNone
	}
}
