package lookup

import (
	"context"

	"tidereport/internal/domain"
)

// Source is one way of looking an indicator up. All sources report the same
// record shape so the resolver and aggregator treat them alike.
type Source interface {
	Name() string
	// Historical sources return expired entries and carry timestamps worth
	// aggregating.
	Historical() bool
	Query(ctx context.Context, ind domain.Indicator) domain.QueryResult
}

type StateQuerier interface {
	QueryState(ctx context.Context, typ domain.IndicatorType, value string) domain.QueryResult
}

type ThreatQuerier interface {
	QueryThreats(ctx context.Context, typ domain.IndicatorType, value string) domain.QueryResult
}

type LocalStore interface {
	Lookup(ctx context.Context, typ domain.IndicatorType, value string) ([]domain.ThreatRecord, error)
}

// ActiveSource queries the remote active state table.
type ActiveSource struct {
	Client StateQuerier
}

func (s ActiveSource) Name() string     { return "active" }
func (s ActiveSource) Historical() bool { return false }

func (s ActiveSource) Query(ctx context.Context, ind domain.Indicator) domain.QueryResult {
	return s.Client.QueryState(ctx, ind.Type, ind.Value)
}

// HistorySource queries the complete remote threat data set.
type HistorySource struct {
	Client ThreatQuerier
}

func (s HistorySource) Name() string     { return "history" }
func (s HistorySource) Historical() bool { return true }

func (s HistorySource) Query(ctx context.Context, ind domain.Indicator) domain.QueryResult {
	return s.Client.QueryThreats(ctx, ind.Type, ind.Value)
}

// LocalSource queries the local active snapshot. It never reports
// expiration data.
type LocalSource struct {
	Store LocalStore
}

func (s LocalSource) Name() string     { return "local" }
func (s LocalSource) Historical() bool { return false }

func (s LocalSource) Query(ctx context.Context, ind domain.Indicator) domain.QueryResult {
	records, err := s.Store.Lookup(ctx, ind.Type, ind.Value)
	if err != nil {
		return domain.QueryResult{Failure: &domain.QueryFailure{Body: err.Error()}}
	}
	for i := range records {
		records[i].Expiration = ""
	}
	return domain.QueryResult{Records: records}
}
