// Package load reads file transfer records from JSON, JSON lines, YAML and
// CSV files.
package load

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chmdznr/filetx/pkg/models"
	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for an unknown input format.
	ErrUnsupportedFormat = errors.Base("unsupported format")
	// ErrMissingColumn is returned when a CSV header lacks a required column.
	ErrMissingColumn = errors.Base("missing column")
)

// Format is an input file format
type Format int

const (
	FormatJSON Format = iota
	FormatJSONLines
	FormatYAML
	FormatCSV
)

var formatNames = []string{
	FormatJSON:      "json",
	FormatJSONLines: "jsonl",
	FormatYAML:      "yaml",
	FormatCSV:       "csv",
}

func (f Format) String() string {
	if int(f) < 0 || int(f) >= len(formatNames) {
		return "Format(" + strconv.Itoa(int(f)) + ")"
	}
	return formatNames[f]
}

// ParseFormat converts a format name into a Format.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}
	switch name {
	case "ndjson":
		return FormatJSONLines, nil
	case "yml":
		return FormatYAML, nil
	}
	return 0, errors.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, errors.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// CSV header columns.
const (
	ColumnPathHash = "path_hash"
	ColumnStates   = "states"
	ColumnOnCloud  = "on_cloud"
	ColumnDigests  = "digests"
	ColumnURL      = "url"
)

// csvListSeparator splits the states and digests columns.
const csvListSeparator = ";"

// Entry is one record read from the input. Position is the 1-based element
// index for JSON arrays and YAML sequences, and the line number otherwise.
// Err is set when the entry could not be decoded or failed validation.
type Entry struct {
	Position int
	Record   models.FileTx
	Err      error
}

// Loader decodes records of a single format.
type Loader struct {
	format Format
}

// New creates a Loader for format.
func New(format Format) *Loader {
	return &Loader{format: format}
}

// Format returns the loader's input format.
func (l *Loader) Format() Format {
	return l.format
}

// Load reads every entry from r. Entries that fail to decode are returned
// with Err set; an error is returned only when the input as a whole cannot
// be read.
func (l *Loader) Load(ctx context.Context, r io.Reader) ([]Entry, error) {
	switch l.format {
	case FormatJSON:
		return loadJSON(ctx, r)
	case FormatJSONLines:
		return loadJSONLines(ctx, r)
	case FormatYAML:
		return loadYAML(ctx, r)
	case FormatCSV:
		return loadCSV(ctx, r)
	default:
		return nil, errors.Errorf("%w: %s", ErrUnsupportedFormat, l.format)
	}
}

func loadJSON(ctx context.Context, r io.Reader) ([]Entry, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Errorf("decoding JSON array: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := Entry{Position: i + 1}
		entry.Err = json.Unmarshal(item, &entry.Record)
		entries = append(entries, entry)
	}
	return entries, nil
}

func loadJSONLines(ctx context.Context, r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	for lineNum := 1; scanner.Scan(); lineNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		entry := Entry{Position: lineNum}
		entry.Err = json.Unmarshal(line, &entry.Record)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading JSON lines: %w", err)
	}
	return entries, nil
}

func loadYAML(ctx context.Context, r io.Reader) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Errorf("decoding YAML document: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("YAML document at line %d must be a sequence of records", seq.Line)
	}

	entries := make([]Entry, 0, len(seq.Content))
	for i, item := range seq.Content {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := Entry{Position: i + 1}
		entry.Err = item.Decode(&entry.Record)
		entries = append(entries, entry)
	}
	return entries, nil
}

func loadCSV(ctx context.Context, r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Errorf("reading CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{ColumnPathHash, ColumnStates, ColumnOnCloud, ColumnDigests, ColumnURL} {
		if _, ok := columns[name]; !ok {
			return nil, errors.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	var entries []Entry
	for lineNum := 2; ; lineNum++ { // Start from 2 to account for header row
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		entry := Entry{Position: lineNum}
		entry.Record, entry.Err = csvRecord(row, columns)
		entries = append(entries, entry)
	}
	return entries, nil
}

func csvRecord(row []string, columns map[string]int) (models.FileTx, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var states []models.StateTag
	for _, v := range splitList(field(ColumnStates)) {
		tag, err := models.ParseStateValue(v)
		if err != nil {
			return models.FileTx{}, err
		}
		states = append(states, tag)
	}

	onCloud := false
	if v := field(ColumnOnCloud); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return models.FileTx{}, errors.Errorf("invalid %s value %q: %w", ColumnOnCloud, v, err)
		}
		onCloud = b
	}

	return models.NewFileTx(field(ColumnPathHash), states, onCloud, splitList(field(ColumnDigests)), field(ColumnURL))
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, csvListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
