// Package csv implements ReedCMS's pipe-delimited CSV persistence: the
// flat two-column-plus-description record format and the "Matrix" variant
// whose fields may hold comma-separated lists.
package csv

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvoss-dev/reedcms/internal/reedstream"
)

const fieldDelimiter = '|'

// Record is one row of a plain key|value|desc CSV file.
type Record struct {
	Key         string
	Value       string
	Description string
}

// MatrixValue is either a single scalar or a comma-separated list.
type MatrixValue struct {
	Single string
	List   []string
	IsList bool
}

// MatrixRecord is one row of a header-carrying, multi-field CSV file.
type MatrixRecord struct {
	Fields      map[string]MatrixValue
	FieldOrder  []string
	Description string
}

// ReadCSV parses a pipe-delimited file of Record rows. Blank lines and
// '#'-prefixed comments are skipped. A missing file is reported via the
// caller-visible io error so init() can decide whether it is fatal.
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, reedstream.IOError("read_csv", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields, err := splitQuoted(line)
		if err != nil {
			return nil, reedstream.CsvErr("read_csv", path, fmt.Sprintf("line %d: %s", lineNo, err))
		}
		if len(fields) < 2 {
			return nil, reedstream.CsvErr("read_csv", path, fmt.Sprintf("line %d: expected at least key|value", lineNo))
		}
		rec := Record{Key: fields[0], Value: fields[1]}
		if len(fields) >= 3 {
			rec.Description = fields[2]
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, reedstream.IOError("read_csv", path, err)
	}
	return records, nil
}

// WriteCSV sorts records by key and atomically rewrites path.
func WriteCSV(path string, records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	for _, r := range sorted {
		b.WriteString(quoteField(r.Key))
		b.WriteByte(fieldDelimiter)
		b.WriteString(quoteField(r.Value))
		b.WriteByte(fieldDelimiter)
		b.WriteString(quoteField(r.Description))
		b.WriteByte('\n')
	}
	return atomicWrite(path, []byte(b.String()))
}

// ReadMatrixCSV parses a header-carrying CSV whose fields may hold
// comma-separated lists. listFields names which header columns are List
// values; everything else is Single. An optional trailing "desc" column
// becomes MatrixRecord.Description.
func ReadMatrixCSV(path string, listFields map[string]bool) ([]MatrixRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, reedstream.IOError("read_matrix_csv", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var header []string
	var records []MatrixRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields, err := splitQuoted(line)
		if err != nil {
			return nil, reedstream.CsvErr("read_matrix_csv", path, fmt.Sprintf("line %d: %s", lineNo, err))
		}
		if header == nil {
			header = fields
			continue
		}
		rec := MatrixRecord{Fields: make(map[string]MatrixValue), FieldOrder: nil}
		hasDesc := false
		for i, name := range header {
			if i >= len(fields) {
				break
			}
			if name == "desc" {
				rec.Description = fields[i]
				hasDesc = true
				continue
			}
			rec.FieldOrder = append(rec.FieldOrder, name)
			if listFields[name] {
				rec.Fields[name] = MatrixValue{List: splitList(fields[i]), IsList: true}
			} else {
				rec.Fields[name] = MatrixValue{Single: fields[i]}
			}
		}
		_ = hasDesc
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, reedstream.IOError("read_matrix_csv", path, err)
	}
	return records, nil
}

// WriteMatrixCSV writes header + records, preserving each record's
// FieldOrder and appending a trailing desc column.
func WriteMatrixCSV(path string, header []string, records []MatrixRecord) error {
	var b strings.Builder
	b.WriteString(strings.Join(quoteFields(header), string(fieldDelimiter)))
	b.WriteByte('\n')

	for _, rec := range records {
		order := rec.FieldOrder
		if len(order) == 0 {
			order = header
		}
		var row []string
		for _, name := range order {
			if name == "desc" {
				continue
			}
			v := rec.Fields[name]
			if v.IsList {
				row = append(row, quoteField(strings.Join(v.List, ",")))
			} else {
				row = append(row, quoteField(v.Single))
			}
		}
		row = append(row, quoteField(rec.Description))
		b.WriteString(strings.Join(row, string(fieldDelimiter)))
		b.WriteByte('\n')
	}
	return atomicWrite(path, []byte(b.String()))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// quoteField wraps a field in double quotes and doubles embedded quotes
// whenever it contains the delimiter, a quote, or a newline.
func quoteField(s string) string {
	if strings.ContainsRune(s, fieldDelimiter) || strings.ContainsAny(s, "\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func quoteFields(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = quoteField(s)
	}
	return out
}

// splitQuoted splits one CSV line on fieldDelimiter, honoring double-quoted
// fields where the delimiter and "" escapes may appear inside the quotes.
func splitQuoted(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inQuotes:
			if c == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					cur.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cur.WriteRune(c)
			}
		case c == '"' && cur.Len() == 0:
			inQuotes = true
		case c == fieldDelimiter:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field")
	}
	fields = append(fields, cur.String())
	return fields, nil
}

// atomicWrite writes data to path via a same-directory temp file followed
// by a rename, removing the temp file on any failure before the rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return reedstream.IOError("write_csv", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return reedstream.IOError("write_csv", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return reedstream.IOError("write_csv", path, err)
	}
	return nil
}
