package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tidereport/internal/blocklist"
	"tidereport/internal/domain"
	"tidereport/internal/indicator"
	"tidereport/internal/lookup"
)

type CategorySource interface {
	WebCategories(ctx context.Context, typ domain.IndicatorType, value string) ([]string, error)
}

type Options struct {
	Mode          domain.Mode
	CheckDomains  bool
	WebCategories bool
	Lists         blocklist.Lists

	SkipChecksOnActiveFailure bool

	// OnProgress, if set, is called after every input line.
	OnProgress func(done, total int)
}

type Result struct {
	Mode    domain.Mode
	Rows    []domain.Row
	Summary domain.Summary
	Invalid []domain.InvalidLine
}

type Engine struct {
	active     lookup.Source
	history    lookup.Source
	categories CategorySource
	logger     *slog.Logger
}

// NewEngine wires the lookups used by Run. history and categories may be nil
// when full mode and web categories are never requested.
func NewEngine(active, history lookup.Source, categories CategorySource, logger *slog.Logger) *Engine {
	return &Engine{active: active, history: history, categories: categories, logger: logger}
}

var (
	ErrNoHistorySource  = errors.New("full mode needs a history source")
	ErrNoCategorySource = errors.New("web categories need a category source")
)

// Run classifies every line in order, one indicator at a time. Lookup
// failures stay inside the indicator's row; Run only returns an error for a
// misconfigured engine or a cancelled context.
func (e *Engine) Run(ctx context.Context, lines []string, opts Options) (Result, error) {
	if opts.Mode == domain.ModeFull && e.history == nil {
		return Result{}, ErrNoHistorySource
	}
	if opts.WebCategories && opts.Mode == domain.ModeFull && e.categories == nil {
		return Result{}, ErrNoCategorySource
	}

	resolver := lookup.NewResolver(opts.CheckDomains, e.logger)
	result := Result{Mode: opts.Mode}
	seen := make(map[string]int)

	for i, raw := range lines {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		lineNo := i + 1
		query := strings.TrimRight(raw, " \t\r\n")
		ind := indicator.Parse(query)
		e.logger.Debug("input", "line", lineNo, "query", query, "type", ind.Type)

		switch {
		case ind.Type == domain.TypeInvalid:
			result.Invalid = append(result.Invalid, domain.InvalidLine{Number: lineNo, Text: query})
		default:
			if _, dup := seen[query]; dup {
				e.logger.Debug("duplicate indicator, reusing earlier result", "line", lineNo, "query", query)
				break
			}
			seen[query] = len(result.Rows)
			result.Rows = append(result.Rows, e.classifyOne(ctx, resolver, ind, opts))
		}

		if opts.OnProgress != nil {
			opts.OnProgress(lineNo, len(lines))
		}
	}

	result.Summary = summarize(result.Rows, len(result.Invalid))
	return result, nil
}

func (e *Engine) classifyOne(ctx context.Context, resolver *lookup.Resolver, ind domain.Indicator, opts Options) domain.Row {
	row := domain.Row{Indicator: ind}
	row.Active = resolver.Resolve(ctx, e.active, ind)
	if opts.Mode != domain.ModeFull {
		return row
	}

	history := resolver.Resolve(ctx, e.history, ind)
	row.History = &history

	if opts.WebCategories && ind.Type == domain.TypeHost {
		categories, err := e.categories.WebCategories(ctx, ind.Type, ind.Value)
		if err != nil {
			e.logger.Warn("web category lookup failed", "query", ind.Value, "err", err)
		} else {
			row.Categories = categories
		}
	}

	row.Action = Decide(Signals{
		Indicator:                 ind.Value,
		Active:                    row.Active,
		History:                   history,
		Categories:                row.Categories,
		Lists:                     opts.Lists,
		SkipChecksOnActiveFailure: opts.SkipChecksOnActiveFailure,
	})
	return row
}

func summarize(rows []domain.Row, invalid int) domain.Summary {
	s := domain.Summary{Total: len(rows), Invalid: invalid}
	for _, row := range rows {
		if row.Active.Hits() {
			s.Active++
		}
		if row.History != nil && row.History.Hits() {
			s.WithHistory++
		}
	}
	return s
}
