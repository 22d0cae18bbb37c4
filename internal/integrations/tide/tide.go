package tide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"tidereport/internal/domain"
)

const webCategorySource = "infoblox_web_cat"

type threatResponse struct {
	Threat []struct {
		Profile    string `json:"profile"`
		Class      string `json:"class"`
		Imported   string `json:"imported"`
		Expiration string `json:"expiration"`
	} `json:"threat"`
}

type dossierRequest struct {
	Target struct {
		One struct {
			Type    string   `json:"type"`
			Target  string   `json:"target"`
			Sources []string `json:"sources"`
		} `json:"one"`
	} `json:"target"`
}

type dossierResponse struct {
	Results []struct {
		Data struct {
			Results []struct {
				Name string `json:"name"`
			} `json:"results"`
		} `json:"data"`
	} `json:"results"`
}

// Client talks to the TIDE threat data and dossier APIs.
type Client struct {
	baseURL    string
	dossierURL string
	apiKey     string
	http       *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.TideURL, "/"),
		dossierURL: cfg.DossierURL,
		apiKey:     cfg.APIKey,
		http:       externalHTTPClient,
		logger:     logger,
	}
}

// QueryState looks up the active state table only.
func (c *Client) QueryState(ctx context.Context, typ domain.IndicatorType, value string) QueryResult {
	return c.queryThreats(ctx, "/data/threats/state/"+string(typ), typ, value)
}

// QueryThreats looks up all threat data, expired entries included.
func (c *Client) QueryThreats(ctx context.Context, typ domain.IndicatorType, value string) QueryResult {
	return c.queryThreats(ctx, "/data/threats/"+string(typ), typ, value)
}

func (c *Client) queryThreats(ctx context.Context, path string, typ domain.IndicatorType, value string) QueryResult {
	params := url.Values{}
	params.Set(string(typ), value)
	apiURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return QueryResult{Failure: &QueryFailure{Body: fmt.Sprintf("creating request: %v", err)}}
	}
	status, body, err := c.do(req)
	if err != nil {
		return QueryResult{Failure: &QueryFailure{Body: err.Error()}}
	}
	c.logger.Debug("tide response", "query", value, "type", typ, "status", status, "body", string(body))
	if !statusOK(status) {
		return QueryResult{Failure: &QueryFailure{Status: status, Body: string(body)}}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return QueryResult{}
	}

	var parsed threatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return QueryResult{Failure: &QueryFailure{Status: status, Body: fmt.Sprintf("parsing response: %v", err)}}
	}
	records := make([]ThreatRecord, 0, len(parsed.Threat))
	for _, t := range parsed.Threat {
		records = append(records, ThreatRecord{
			Profile:    t.Profile,
			Class:      t.Class,
			Imported:   t.Imported,
			Expiration: t.Expiration,
		})
	}
	return QueryResult{Records: records}
}

// WebCategories returns the web categorisation names for value. A lookup
// that succeeds without data yields the Uncategorised label.
func (c *Client) WebCategories(ctx context.Context, typ domain.IndicatorType, value string) ([]string, error) {
	var payload dossierRequest
	payload.Target.One.Type = string(typ)
	payload.Target.One.Target = value
	payload.Target.One.Sources = []string{webCategorySource}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding dossier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dossierURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	status, body, err := c.do(req)
	if err != nil {
		return nil, &QueryFailure{Body: err.Error()}
	}
	if !statusOK(status) {
		return nil, &QueryFailure{Status: status, Body: string(body)}
	}

	var parsed dossierResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing dossier response: %w", err)
	}
	var categories []string
	if len(parsed.Results) > 0 {
		for _, cat := range parsed.Results[0].Data.Results {
			categories = append(categories, cat.Name)
		}
	}
	if len(categories) == 0 {
		return []string{domain.UncategorisedLabel}, nil
	}
	return categories, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func statusOK(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true
	}
	return false
}
