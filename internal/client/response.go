package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// maxTextMessage caps plain-text error bodies shown to the user.
const maxTextMessage = 200

// simplePath matches $.a.b style paths that can be walked on the raw body.
var simplePath = regexp.MustCompile(`^\$(\.[A-Za-z0-9_-]+)+$`)

// errorPaths are tried in order to find a message in an error payload.
var errorPaths = []string{"$.detail", "$.detail[*].msg", "$.error", "$.message"}

// decodeResult extracts holdings and sectors from a successful response body.
func decodeResult(body []byte, holdingsPath, sectorsPath string, logger *common.Logger) (*models.Result, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// A 2xx carrying only an error field is a rejected portfolio.
	if _, err := jsonpath.Get(holdingsPath, doc); err != nil {
		if msg := messageFromJSON(doc); msg != "" {
			return nil, &APIError{StatusCode: http.StatusUnprocessableEntity, Message: msg}
		}
		return nil, fmt.Errorf("response has no holdings at %s: %w", holdingsPath, err)
	}

	holdings, err := extractHoldings(doc, holdingsPath)
	if err != nil {
		return nil, err
	}
	sectors, err := extractSectors(body, doc, sectorsPath, logger)
	if err != nil {
		return nil, err
	}
	return &models.Result{Holdings: holdings, Sectors: sectors}, nil
}

func extractHoldings(doc any, path string) ([]models.Holding, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("holdings at %s: %w", path, err)
	}
	if v == nil {
		return []models.Holding{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var holdings []models.Holding
	if err := json.Unmarshal(raw, &holdings); err != nil {
		return nil, fmt.Errorf("holdings at %s: %w", path, err)
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}

// extractSectors keeps the service's key order when the path is a plain
// field walk. Other JSONPath expressions go through a map, so their sectors
// come back sorted by name.
func extractSectors(body []byte, doc any, path string, logger *common.Logger) (models.Sectors, error) {
	if simplePath.MatchString(path) {
		raw, ok := walkRaw(body, strings.Split(path, ".")[1:])
		if !ok {
			logger.Debug().Str("path", path).Msg("Sectors path not found in response")
			return models.Sectors{}, nil
		}
		var sectors models.Sectors
		if err := json.Unmarshal(raw, &sectors); err != nil {
			return nil, fmt.Errorf("sectors at %s: %w", path, err)
		}
		if sectors == nil {
			sectors = models.Sectors{}
		}
		return sectors, nil
	}

	v, err := jsonpath.Get(path, doc)
	if err != nil {
		logger.Debug().Str("path", path).Err(err).Msg("Sectors path not found in response")
		return models.Sectors{}, nil
	}
	if list, ok := v.([]any); ok && len(list) > 0 {
		v = list[0]
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sectors at %s: expected object, got %T", path, v)
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	sectors := make(models.Sectors, 0, len(names))
	for _, name := range names {
		w, ok := m[name].(float64)
		if !ok {
			return nil, fmt.Errorf("sectors at %s: weight for %q is %T", path, name, m[name])
		}
		sectors = append(sectors, models.Sector{Name: name, Weight: w})
	}
	return sectors, nil
}

// walkRaw follows object keys through raw JSON without losing key order.
func walkRaw(body []byte, keys []string) (json.RawMessage, bool) {
	cur := json.RawMessage(body)
	for _, k := range keys {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[k]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// errorMessage finds the user-facing message in a non-2xx body.
func errorMessage(body []byte, contentType string) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		if msg := messageFromJSON(doc); msg != "" {
			return msg
		}
		return MsgAnalysisFailed
	}

	if strings.HasPrefix(contentType, "text/plain") {
		text := strings.TrimSpace(string(body))
		if text != "" && len(text) <= maxTextMessage {
			return text
		}
	}
	return MsgAnalysisFailed
}

func messageFromJSON(doc any) string {
	for _, path := range errorPaths {
		v, err := jsonpath.Get(path, doc)
		if err != nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case []any:
			var parts []string
			for _, item := range val {
				if s, ok := item.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return ""
}
