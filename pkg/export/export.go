// Package export serializes captured request log entries to
// interchange formats for download and offline analysis.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

// Format represents a supported export format.
type Format string

// Supported formats.
const (
	FormatUnknown Format = ""
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsValid returns true if the format is a known export format.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ErrUnsupportedFormat is returned for formats Export cannot produce.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// UnsupportedFormatError reports the format that was requested.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported export format: " + string(e.Format)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// csvColumns is the fixed CSV column order.
var csvColumns = []string{
	"sequence",
	"timestamp",
	"method",
	"path",
	"query",
	"ip",
	"statusCode",
	"responseTimeMs",
	"requestHeaders",
	"requestBody",
	"responseHeaders",
	"responseBody",
}

// Export serializes entries to the given format. JSON output is an
// indented array of entries with stable field order; CSV output embeds
// nested header and body values as JSON strings within their cells.
func Export(entries []*requestlog.Entry, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(entries)
	case FormatCSV:
		return exportCSV(entries)
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}
}

func exportJSON(entries []*requestlog.Entry) ([]byte, error) {
	if entries == nil {
		entries = []*requestlog.Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func exportCSV(entries []*requestlog.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.Sequence, 10),
			e.Timestamp.Format(time.RFC3339Nano),
			e.Request.Method,
			e.Request.Path,
			e.Request.Query,
			e.Request.IP,
			strconv.Itoa(e.Response.StatusCode),
			strconv.FormatInt(e.ResponseTimeMs, 10),
			jsonCell(e.Request.Headers),
			jsonCell(e.Request.Body),
			jsonCell(e.Response.Headers),
			jsonCell(e.Response.Body),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jsonCell renders a nested value as a JSON string for embedding in a
// CSV cell. Nil values produce an empty cell.
func jsonCell(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
