package blocklist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Lists holds the tokens the category and country checks run against.
type Lists struct {
	Categories   []string
	CountryCodes []string
}

// Load reads one token per line. A missing file is an empty list, not an error.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening list %s: %w", path, err)
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		item := strings.TrimRight(scanner.Text(), " \t\r")
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading list %s: %w", path, err)
	}
	return items, nil
}

// MatchCategory reports whether any block entry occurs, case-insensitively,
// inside any category name.
func MatchCategory(categories, blockList []string) bool {
	if len(categories) == 0 {
		return false
	}
	for _, item := range blockList {
		needle := strings.ToLower(item)
		for _, cat := range categories {
			if strings.Contains(strings.ToLower(cat), needle) {
				return true
			}
		}
	}
	return false
}

// MatchCountry reports whether any country code is a substring of the indicator.
func MatchCountry(indicator string, codes []string) bool {
	if indicator == "" {
		return false
	}
	for _, code := range codes {
		if strings.Contains(indicator, code) {
			return true
		}
	}
	return false
}
