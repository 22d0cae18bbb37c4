package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tidereport/internal/domain"
)

var (
	activeOnlyHeader = []string{"Host", "Active Threats", "Active Profiles", "Active Classes"}
	fullHeader       = []string{
		"Host", "Action", "Active Threats", "Active Profiles", "Total Indicators",
		"Indicator Profiles", "Threat Classes", "Last Seen", "Last Expiry",
		"Domain Checked", "Web Categories",
	}
)

// Header returns the CSV column names for mode.
func Header(mode Mode) []string {
	if mode == domain.ModeFull {
		return fullHeader
	}
	return activeOnlyHeader
}

// Generate writes rows and the summary line. With a structured sink the
// header and rows go there as CSV; otherwise rows go to human as one line
// each. The summary line always goes to human, and to structured as well
// when present. structured may be nil.
func Generate(human, structured io.Writer, mode Mode, rows []Row, summary Summary) error {
	line := SummaryLine(mode, summary)

	if structured != nil {
		cw := csv.NewWriter(structured)
		if err := cw.Write(Header(mode)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, row := range rows {
			if err := cw.Write(Record(mode, row)); err != nil {
				return fmt.Errorf("writing row %s: %w", row.Indicator.Value, err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flushing csv: %w", err)
		}
		if _, err := fmt.Fprintln(structured, line); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	} else {
		for _, row := range rows {
			if _, err := fmt.Fprintln(human, HumanLine(mode, row)); err != nil {
				return fmt.Errorf("writing row %s: %w", row.Indicator.Value, err)
			}
		}
	}

	if _, err := fmt.Fprintln(human, line); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Record renders one row as CSV fields in header order.
func Record(mode Mode, row Row) []string {
	active := row.Active
	if mode != domain.ModeFull {
		return []string{
			row.Indicator.Value,
			strconv.Itoa(active.DisplayCount()),
			strings.Join(profiles(active), ", "),
			strings.Join(active.Classes, ", "),
		}
	}

	history := historyOf(row)
	return []string{
		row.Indicator.Value,
		string(row.Action),
		strconv.Itoa(active.DisplayCount()),
		strings.Join(profiles(active), ", "),
		strconv.Itoa(history.DisplayCount()),
		strings.Join(profiles(history), ", "),
		strings.Join(history.Classes, ", "),
		timestamp(history.LastImported),
		timestamp(history.LastExpiration),
		strconv.FormatBool(history.DomainChecked),
		strings.Join(row.Categories, ", "),
	}
}

func HumanLine(mode Mode, row Row) string {
	active := row.Active
	if mode != domain.ModeFull {
		return fmt.Sprintf("Host: %s, Active threats: %d, Active profiles: %s, Classes: %s",
			row.Indicator.Value, active.DisplayCount(), list(profiles(active)), list(active.Classes))
	}

	history := historyOf(row)
	return fmt.Sprintf("Host: %s, Action: %s, Active threats: %d, Active profiles: %s, "+
		"Total threats: %d, Profiles: %s, Classes: %s, "+
		"Last seen: %s, Last Expiry: %s, Domain Checked: %t, Web Categories: %s",
		row.Indicator.Value, row.Action, active.DisplayCount(), list(profiles(active)),
		history.DisplayCount(), list(profiles(history)), list(history.Classes),
		timestamp(history.LastImported), timestamp(history.LastExpiration),
		history.DomainChecked, list(row.Categories))
}

func SummaryLine(mode Mode, s Summary) string {
	if mode == domain.ModeFull {
		return fmt.Sprintf("Summary: Total = %d, Active = %d, Threats = %d, No info = %d",
			s.Total, s.Active, s.WithHistory, s.NoInfo())
	}
	return fmt.Sprintf("Summary: Total = %d, Active = %d, Not active = %d",
		s.Total, s.Active, s.NotActive())
}

func historyOf(row Row) ThreatSummary {
	if row.History == nil {
		return ThreatSummary{}
	}
	return *row.History
}

func profiles(s ThreatSummary) []string {
	if s.Failed() {
		return []string{domain.FailedProfileText}
	}
	return s.Profiles
}

func list(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
