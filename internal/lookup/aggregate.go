package lookup

import (
	"errors"
	"fmt"
	"time"

	"tidereport/internal/domain"
)

// orderedCounter counts keys and remembers the order they were first seen in.
type orderedCounter struct {
	keys   []string
	counts map[string]int
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: make(map[string]int)}
}

func (c *orderedCounter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
}

func (c *orderedCounter) Keys() []string {
	if len(c.keys) == 0 {
		return nil
	}
	return append([]string(nil), c.keys...)
}

func (c *orderedCounter) Count(key string) int { return c.counts[key] }

// Aggregate folds records into a summary. With timestamps set it also keeps
// the most recent imported and expiration times; records whose timestamps do
// not parse still count, and the parse errors are returned joined.
func Aggregate(records []domain.ThreatRecord, withTimestamps bool) (domain.ThreatSummary, error) {
	profiles := newOrderedCounter()
	classes := newOrderedCounter()
	var lastImported, lastExpiration time.Time
	var errs []error

	for _, rec := range records {
		profiles.Add(rec.Profile)
		classes.Add(rec.Class)
		if !withTimestamps {
			continue
		}
		if rec.Imported != "" {
			imported, err := parseTimestamp(rec.Imported)
			if err != nil {
				errs = append(errs, fmt.Errorf("imported: %w", err))
			} else if imported.After(lastImported) {
				lastImported = imported
			}
		}
		if rec.Expiration != "" {
			expiration, err := parseTimestamp(rec.Expiration)
			if err != nil {
				errs = append(errs, fmt.Errorf("expiration: %w", err))
			} else if expiration.After(lastExpiration) {
				lastExpiration = expiration
			}
		}
	}

	return domain.ThreatSummary{
		Count:          len(records),
		Profiles:       profiles.Keys(),
		Classes:        classes.Keys(),
		LastImported:   lastImported,
		LastExpiration: lastExpiration,
	}, errors.Join(errs...)
}

// Timestamps look like 2024-02-28T10:11:12.123Z; the fraction is optional.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
