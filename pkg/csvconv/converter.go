// Package csvconv converts a session's JSONL exports into tabular CSV files
// for warehouse import. The JSONL files are treated as read-only input;
// nested collections (product variants, sale line items and payments) are
// extracted into their own tables.
package csvconv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"lsexport/pkg/lightspeed"
	"lsexport/pkg/logger"
)

// Converter turns one session directory's JSONL files into CSV tables
type Converter struct {
	sessionDir string
	csvDir     string
	logger     logger.Logger
}

// Summary lists the produced CSV files and their record counts
type Summary struct {
	CSVDir string
	Files  map[string]int
}

// New creates a converter for a session directory. CSV output goes to a
// csv/ subdirectory so the source JSONL files stay untouched.
func New(sessionDir string) (*Converter, error) {
	info, err := os.Stat(sessionDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("session directory does not exist: %s", sessionDir)
	}

	csvDir := filepath.Join(sessionDir, "csv")
	if err := os.MkdirAll(csvDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}

	return &Converter{
		sessionDir: sessionDir,
		csvDir:     csvDir,
		logger:     logger.GetLogger(),
	}, nil
}

// ConvertAll converts every JSONL file found in the session directory
func (c *Converter) ConvertAll() (*Summary, error) {
	entries, err := os.ReadDir(c.sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	summary := &Summary{CSVDir: c.csvDir, Files: make(map[string]int)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		endpoint := strings.TrimSuffix(entry.Name(), ".jsonl")
		if err := c.Convert(endpoint, summary); err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", endpoint, err)
		}
	}
	return summary, nil
}

// Convert converts a single endpoint's JSONL file, including any nested
// table extraction it requires
func (c *Converter) Convert(endpoint string, summary *Summary) error {
	records, err := c.readJSONL(endpoint)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		c.logger.WarnWithFields("no records to convert", map[string]interface{}{
			"endpoint": endpoint,
		})
		return nil
	}

	columns, ok := schemas[endpoint]
	if !ok {
		columns = unionColumns(records)
	}
	if err := c.writeCSV(endpoint+".csv", columns, records, summary); err != nil {
		return err
	}

	switch endpoint {
	case "products":
		variants := extractNested(records, "variant_options", "product_id")
		if err := c.writeCSV("product_variants.csv", variantColumns, variants, summary); err != nil {
			return err
		}
	case "sales":
		items := extractNested(records, "line_items", "sale_id")
		if err := c.writeCSV("sale_items.csv", saleItemColumns, items, summary); err != nil {
			return err
		}
		payments := extractNested(records, "payments", "sale_id")
		if err := c.writeCSV("sale_payments.csv", salePaymentColumns, payments, summary); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) readJSONL(endpoint string) ([]lightspeed.Record, error) {
	path := filepath.Join(c.sessionDir, endpoint+".jsonl")
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []lightspeed.Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record lightspeed.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("corrupt record in %s: %w", path, err)
		}
		delete(record, "_exported_at")
		records = append(records, record)
	}
	return records, scanner.Err()
}

func (c *Converter) writeCSV(filename string, columns []string, records []lightspeed.Record, summary *Summary) error {
	if len(records) == 0 {
		return nil
	}

	path := filepath.Join(c.csvDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, col := range columns {
			row[i] = cellValue(record[col])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	summary.Files[filename] = len(records)
	c.logger.InfoWithFields("csv written", map[string]interface{}{
		"file":    filename,
		"records": len(records),
	})
	return nil
}

// extractNested pulls a nested collection out of parent records, stamping
// each child with its parent's id under parentKey
func extractNested(records []lightspeed.Record, field, parentKey string) []lightspeed.Record {
	var out []lightspeed.Record
	for _, parent := range records {
		children, ok := parent[field].([]interface{})
		if !ok {
			continue
		}
		for _, raw := range children {
			child, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			flat := make(lightspeed.Record, len(child)+1)
			for k, v := range child {
				flat[k] = v
			}
			flat[parentKey] = parent["id"]
			out = append(out, flat)
		}
	}
	return out
}

// unionColumns builds a stable column list from every key seen across records
func unionColumns(records []lightspeed.Record) []string {
	seen := make(map[string]bool)
	for _, record := range records {
		for k := range record {
			seen[k] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	// Keep id first when present, matching the fixed schemas
	for i, col := range columns {
		if col == "id" {
			copy(columns[1:i+1], columns[:i])
			columns[0] = "id"
			break
		}
	}
	return columns
}

// cellValue renders a record field for a CSV cell. Nested values are
// JSON-encoded rather than dropped.
func cellValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
