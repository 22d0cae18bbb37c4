package lookup

import (
	"context"
	"log/slog"

	"tidereport/internal/domain"
	"tidereport/internal/indicator"
)

// maxFallbackDepth bounds how many parent domains are tried after the
// direct lookup of a host comes back empty.
const maxFallbackDepth = 1

type Resolver struct {
	checkDomains bool
	stripHost    func(string) string
	logger       *slog.Logger
}

func NewResolver(checkDomains bool, logger *slog.Logger) *Resolver {
	return &Resolver{checkDomains: checkDomains, stripHost: indicator.StripHost, logger: logger}
}

// Resolve looks ind up in src and reduces the result. When the direct
// lookup of a host finds nothing and domain checks are on, the parent domain
// is looked up once instead and the summary is marked DomainChecked.
func (r *Resolver) Resolve(ctx context.Context, src Source, ind domain.Indicator) domain.ThreatSummary {
	current := ind
	for depth := 0; ; depth++ {
		summary, empty := r.summarize(ctx, src, current)
		summary.DomainChecked = depth > 0
		if !empty || depth >= maxFallbackDepth || !r.fallbackAllowed(current) {
			return summary
		}

		parent := r.stripHost(current.Value)
		if parent == current.Value {
			return summary
		}
		r.logger.Debug("no direct hit, checking parent domain", "source", src.Name(), "query", current.Value, "domain", parent)
		current = domain.Indicator{Value: parent, Type: current.Type}
	}
}

func (r *Resolver) fallbackAllowed(ind domain.Indicator) bool {
	return r.checkDomains && ind.Type == domain.TypeHost
}

// summarize reports empty only for a successful lookup with no records.
func (r *Resolver) summarize(ctx context.Context, src Source, ind domain.Indicator) (domain.ThreatSummary, bool) {
	res := src.Query(ctx, ind)
	if res.Failed() {
		r.logger.Error("query failed", "source", src.Name(), "query", ind.Value, "status", res.Failure.Status, "body", res.Failure.Body)
		return domain.ThreatSummary{Failure: res.Failure}, false
	}

	summary, err := Aggregate(res.Records, src.Historical())
	if err != nil {
		r.logger.Warn("ignoring unparseable timestamps", "source", src.Name(), "query", ind.Value, "err", err)
	}
	if summary.Count == 0 {
		r.logger.Debug("no threats found", "source", src.Name(), "query", ind.Value)
		return summary, true
	}
	r.logger.Debug("threats found", "source", src.Name(), "query", ind.Value, "count", summary.Count, "profiles", summary.Profiles)
	return summary, false
}
