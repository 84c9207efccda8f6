// Package csv encodes decoded JSON values as CSV fields and lines.
//
// Only null, absent and empty composite values become empty fields. Numeric
// zero and false are written as "0" and "false" so they stay distinguishable
// from missing values; a plain truthiness test would blank them.
package csv

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// EncodeField converts a single decoded JSON value into a CSV field.
// Strings made only of letters and digits are emitted as-is, every other
// string is double-quoted with embedded quotes doubled.
func EncodeField(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return encodeString(value)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.RawMessage:
		return encodeRaw(value)
	case []interface{}:
		if len(value) == 0 {
			return ""
		}
		return encodeComposite(value)
	case map[string]interface{}:
		if len(value) == 0 {
			return ""
		}
		return encodeComposite(value)
	case fmt.Stringer:
		return encodeString(value.String())
	default:
		return encodeComposite(value)
	}
}

// EncodeRow joins the encoded fields with commas.
func EncodeRow(values []interface{}) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = EncodeField(v)
	}
	return strings.Join(fields, ",")
}

// EncodeStrings is EncodeRow for plain string slices such as header rows.
func EncodeStrings(values []string) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = encodeString(v)
	}
	return strings.Join(fields, ",")
}

func encodeString(s string) string {
	if s == "" {
		return ""
	}
	if isAlnum(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// encodeRaw decodes an undecoded JSON value and encodes the result.
func encodeRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return encodeString(string(raw))
	}
	return EncodeField(v)
}

// encodeComposite flattens arrays and objects to compact JSON.
func encodeComposite(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return encodeString(fmt.Sprint(v))
	}
	return encodeString(string(data))
}

// Writer writes encoded lines to an underlying io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRow encodes and writes one row followed by a newline.
func (w *Writer) WriteRow(values []interface{}) error {
	return w.WriteLine(EncodeRow(values))
}

// WriteLine writes an already rendered line.
func (w *Writer) WriteLine(line string) error {
	if _, err := io.WriteString(w.w, line+"\n"); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

// WriteLines writes every line in order, stopping at the first error.
func (w *Writer) WriteLines(lines []string) error {
	for _, line := range lines {
		if err := w.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
