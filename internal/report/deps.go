package report

import "tidereport/internal/domain"

type Row = domain.Row
type Summary = domain.Summary
type ThreatSummary = domain.ThreatSummary
type InvalidLine = domain.InvalidLine
type Mode = domain.Mode
