package indicator

import (
	"net/netip"
	"regexp"
	"strings"

	"tidereport/internal/domain"

	"golang.org/x/net/publicsuffix"
)

var (
	hostLabelRe = regexp.MustCompile(`^[A-Za-z0-9_](?:[A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?$`)
	urlRe       = regexp.MustCompile(`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|` +
		`\[?[A-F0-9]*:[A-F0-9:]+\]?)` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)
)

// Classify checks ip first, then url, then host.
func Classify(raw string) domain.IndicatorType {
	switch {
	case isIP(raw):
		return domain.TypeIP
	case urlRe.MatchString(raw):
		return domain.TypeURL
	case isHost(raw):
		return domain.TypeHost
	default:
		return domain.TypeInvalid
	}
}

func Parse(raw string) domain.Indicator {
	return domain.Indicator{Value: raw, Type: Classify(raw)}
}

func isIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

func isHost(s string) bool {
	if len(s) < 1 || len(s) > 255 {
		return false
	}
	s = strings.TrimSuffix(s, ".")
	for _, label := range strings.Split(s, ".") {
		if !hostLabelRe.MatchString(label) {
			return false
		}
	}
	return true
}

// StripHost drops the lowest label of fqdn. It returns fqdn unchanged when
// fqdn is already a registrable domain (or shorter), so callers can compare
// the result with the input to tell whether there is a parent to check.
func StripHost(fqdn string) string {
	trimmed := strings.TrimSuffix(fqdn, ".")
	labels := strings.Split(trimmed, ".")
	if len(labels) <= 2 {
		return fqdn
	}
	if registrable, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(trimmed)); err == nil &&
		strings.EqualFold(registrable, trimmed) {
		return fqdn
	}
	return strings.Join(labels[1:], ".")
}
