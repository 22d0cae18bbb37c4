package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"tidereport/internal/domain"
)

func activeRow(value string, count int, profiles ...string) Row {
	return Row{
		Indicator: domain.Indicator{Value: value, Type: domain.TypeHost},
		Active:    ThreatSummary{Count: count, Profiles: profiles, Classes: []string{"Bot"}},
	}
}

func TestGenerateActiveOnlyCSV(t *testing.T) {
	rows := []Row{
		activeRow("evil.example", 2, "IID", "AISCOMM"),
		{Indicator: domain.Indicator{Value: "down.example"}, Active: ThreatSummary{Failure: &domain.QueryFailure{Status: 500}}},
	}
	summary := Summary{Total: 2, Active: 1}
	var human, structured bytes.Buffer

	if err := Generate(&human, &structured, domain.ModeActiveOnly, rows, summary); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	wantCSV := "Host,Active Threats,Active Profiles,Active Classes\n" +
		"evil.example,2,\"IID, AISCOMM\",Bot\n" +
		"down.example,-1,API Exception Occurred,\n" +
		"Summary: Total = 2, Active = 1, Not active = 1\n"
	if structured.String() != wantCSV {
		t.Fatalf("csv output:\n%s\nwant:\n%s", structured.String(), wantCSV)
	}
	if human.String() != "Summary: Total = 2, Active = 1, Not active = 1\n" {
		t.Fatalf("human output should only carry the summary, got %q", human.String())
	}
}

func TestGenerateActiveOnlyHuman(t *testing.T) {
	rows := []Row{activeRow("evil.example", 1, "IID")}
	var human bytes.Buffer

	if err := Generate(&human, nil, domain.ModeActiveOnly, rows, Summary{Total: 1, Active: 1}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := "Host: evil.example, Active threats: 1, Active profiles: [IID], Classes: [Bot]\n" +
		"Summary: Total = 1, Active = 1, Not active = 0\n"
	if human.String() != want {
		t.Fatalf("human output:\n%s\nwant:\n%s", human.String(), want)
	}
}

func TestGenerateFullCSVColumns(t *testing.T) {
	history := ThreatSummary{
		Count:          3,
		Profiles:       []string{"IID"},
		Classes:        []string{"Phishing", "Bot"},
		LastImported:   time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC),
		LastExpiration: time.Date(2024, 8, 3, 10, 0, 0, 0, time.UTC),
		DomainChecked:  true,
	}
	rows := []Row{
		{
			Indicator:  domain.Indicator{Value: "login.evil.example", Type: domain.TypeHost},
			History:    &history,
			Categories: []string{"Phishing", "Newly Registered"},
			Action:     domain.ActionNotActive,
		},
		{
			Indicator: domain.Indicator{Value: "quiet.example", Type: domain.TypeHost},
			History:   &ThreatSummary{},
		},
	}
	var human, structured bytes.Buffer

	if err := Generate(&human, &structured, domain.ModeFull, rows, Summary{Total: 2, WithHistory: 1}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(structured.String(), "\n"), "\n")
	if got := lines[len(lines)-1]; got != "Summary: Total = 2, Active = 0, Threats = 1, No info = 1" {
		t.Fatalf("unexpected summary line: %q", got)
	}
	records, err := csv.NewReader(strings.NewReader(strings.Join(lines[:len(lines)-1], "\n"))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	for i, rec := range records {
		if len(rec) != 11 {
			t.Fatalf("record %d has %d columns", i, len(rec))
		}
	}
	want := []string{
		"login.evil.example", "Not Active", "0", "", "3", "IID", "Phishing, Bot",
		"2024-02-03T10:00:00Z", "2024-08-03T10:00:00Z", "true", "Phishing, Newly Registered",
	}
	for i := range want {
		if records[1][i] != want[i] {
			t.Fatalf("column %s = %q, want %q", records[0][i], records[1][i], want[i])
		}
	}
	if records[2][7] != "" || records[2][8] != "" || records[2][10] != "" {
		t.Fatalf("absent values should be empty: %q", records[2])
	}
}

func TestHumanLineFull(t *testing.T) {
	row := Row{
		Indicator:  domain.Indicator{Value: "shop.ru", Type: domain.TypeHost},
		History:    &ThreatSummary{},
		Categories: []string{"Shopping"},
		Action:     domain.ActionCountryBlock,
	}
	want := "Host: shop.ru, Action: Country Block, Active threats: 0, Active profiles: [], " +
		"Total threats: 0, Profiles: [], Classes: [], Last seen: , Last Expiry: , " +
		"Domain Checked: false, Web Categories: [Shopping]"
	if got := HumanLine(domain.ModeFull, row); got != want {
		t.Fatalf("HumanLine:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummaryLine(t *testing.T) {
	s := Summary{Total: 5, Active: 2, WithHistory: 3}
	if got := SummaryLine(domain.ModeActiveOnly, s); got != "Summary: Total = 5, Active = 2, Not active = 3" {
		t.Fatalf("unexpected active-only summary: %q", got)
	}
	if got := SummaryLine(domain.ModeFull, s); got != "Summary: Total = 5, Active = 2, Threats = 3, No info = 2" {
		t.Fatalf("unexpected full summary: %q", got)
	}
}
