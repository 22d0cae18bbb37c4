package domain

import (
	"fmt"
	"time"
)

type IndicatorType string

const (
	TypeHost    IndicatorType = "host"
	TypeIP      IndicatorType = "ip"
	TypeURL     IndicatorType = "url"
	TypeInvalid IndicatorType = "invalid"
)

type Indicator struct {
	Value string
	Type  IndicatorType
}

// ThreatRecord is one hit returned by a lookup. Timestamps stay in the
// service's wire format; the aggregator parses them.
type ThreatRecord struct {
	Profile    string
	Class      string
	Imported   string
	Expiration string
}

// FailedProfileText is what a failed lookup shows in place of its profiles.
const FailedProfileText = "API Exception Occurred"

// QueryFailure means a lookup could not determine anything. Status 0 is a
// transport failure; anything else is the HTTP status the service returned.
type QueryFailure struct {
	Status int
	Body   string
}

func (f *QueryFailure) Error() string {
	if f.Status == 0 {
		return fmt.Sprintf("query failed: %s", f.Body)
	}
	return fmt.Sprintf("query failed with status %d: %s", f.Status, f.Body)
}

type QueryResult struct {
	Records []ThreatRecord
	Failure *QueryFailure
}

func (r QueryResult) Failed() bool { return r.Failure != nil }

// ThreatSummary is the reduction of one lookup. A zero LastImported or
// LastExpiration means the value is absent.
type ThreatSummary struct {
	Count          int
	Profiles       []string
	Classes        []string
	LastImported   time.Time
	LastExpiration time.Time
	DomainChecked  bool
	Failure        *QueryFailure
}

func (s ThreatSummary) Failed() bool { return s.Failure != nil }

// Hits reports whether the lookup succeeded with at least one record.
func (s ThreatSummary) Hits() bool { return s.Failure == nil && s.Count > 0 }

// DisplayCount keeps the -1 marker that report consumers expect for failures.
func (s ThreatSummary) DisplayCount() int {
	if s.Failed() {
		return -1
	}
	return s.Count
}
