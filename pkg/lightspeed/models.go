package lightspeed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	errs "lsexport/pkg/errors"
)

// Record is one remote record. The exporter does not interpret its schema;
// records are appended to the output as-is.
type Record map[string]interface{}

// Identity returns a stable dedupe key for the record: the remote "id" field
// when present, otherwise a digest of the canonicalized record.
func (r Record) Identity() string {
	switch id := r["id"].(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	}

	// Canonicalize by sorted keys so the digest is order-independent
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		fmt.Fprintf(&sb, "%v", r[k])
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}

// Page is one page of records from an endpoint
type Page struct {
	Records []Record
	// NextCursor positions the following FetchPage call. Empty when Done.
	NextCursor string
	// Done marks the end of the collection
	Done bool
}

// pagination is the optional page-count envelope some endpoints return
type pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// parseEnvelope extracts the record array and optional pagination info from a
// response body. The API is inconsistent across endpoints: most wrap records
// in {"data": [...]}, some key the array by endpoint name, a few return the
// array directly.
func parseEnvelope(endpoint string, body []byte) ([]Record, *pagination, error) {
	// Bare array form first
	var direct []Record
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeParsing, err, "unexpected response shape for %s", endpoint)
	}

	var raw json.RawMessage
	if data, ok := envelope["data"]; ok {
		raw = data
	} else if data, ok := envelope[endpoint]; ok {
		raw = data
	}

	var records []Record
	if raw != nil {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, nil, errs.Wrap(errs.ErrorTypeParsing, err, "malformed record array for %s", endpoint)
		}
	}

	var pg *pagination
	if rawPg, ok := envelope["pagination"]; ok {
		pg = &pagination{}
		if err := json.Unmarshal(rawPg, pg); err != nil {
			pg = nil
		}
	}

	return records, pg, nil
}
