package load

import (
	"context"
	"strings"
	"testing"

	"github.com/chmdznr/filetx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wantRecord = models.FileTx{
	PathHash: "abc123",
	States:   []models.StateTag{models.StateUploadRequested, models.StateUploaded},
	OnCloud:  true,
	Digests:  []string{"d1"},
	URL:      "http://x",
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "json", want: FormatJSON},
		{input: "JSONL", want: FormatJSONLines},
		{input: "ndjson", want: FormatJSONLines},
		{input: "yaml", want: FormatYAML},
		{input: "yml", want: FormatYAML},
		{input: "csv", want: FormatCSV},
		{input: "xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	got, err := DetectFormat("records/files.ndjson")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONLines, got)

	got, err = DetectFormat("files.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, got)

	_, err = DetectFormat("records")
	assert.ErrorIs(t, err, ErrUnsupportedFormat, "missing extension should fail")

	assert.Equal(t, "csv", FormatCSV.String())
	assert.Equal(t, "Format(9)", Format(9).String())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{
			name:   "json_array",
			format: FormatJSON,
			input:  `[["abc123", [{"code":1},{"code":4}], true, "d1", "http://x"], ["x", [99], false, "", ""]]`,
		},
		{
			name:   "json_lines",
			format: FormatJSONLines,
			input: `{"pathHash":"abc123","states":["uploadRequested","uploaded"],"onCloud":true,"digests":"d1","url":"http://x"}

["x", [99], false, "", ""]
`,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			input: `
- pathHash: abc123
  states: [uploadRequested, uploaded]
  onCloud: true
  digests: d1
  url: http://x
- [x, [99], false, "", ""]
`,
		},
		{
			name:   "csv",
			format: FormatCSV,
			input: `url,path_hash,states,on_cloud,digests
http://x,abc123,uploadRequested;4,true,d1
,x,99,false,
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := New(tt.format).Load(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err, "input should load")
			require.Len(t, entries, 2, "both entries should be returned")

			require.NoError(t, entries[0].Err, "first entry should be valid")
			assert.Equal(t, wantRecord, entries[0].Record)

			assert.ErrorIs(t, entries[1].Err, models.ErrUnknownState, "second entry has a bad state")
			assert.Greater(t, entries[1].Position, entries[0].Position, "positions should increase")
		})
	}
}

func TestLoadPositions(t *testing.T) {
	input := "[\"a\",[],false,\"\",\"\"]\n\n[\"b\",[],false,\"\",\"\"]\n"
	entries, err := New(FormatJSONLines).Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 3, entries[1].Position, "blank lines still count")

	entries, err = New(FormatCSV).Load(context.Background(), strings.NewReader("path_hash,states,on_cloud,digests,url\na,,,,\nb,,,,\n"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Position, "first data row is line 2")
	assert.Equal(t, 3, entries[1].Position)
}

func TestLoadEmpty(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatJSONLines, FormatYAML, FormatCSV} {
		t.Run(format.String(), func(t *testing.T) {
			entries, err := New(format).Load(context.Background(), strings.NewReader(""))
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestLoadStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		input   string
		wantErr error
	}{
		{name: "json_not_array", format: FormatJSON, input: `{"pathHash":"h"}`},
		{name: "yaml_not_sequence", format: FormatYAML, input: "pathHash: h\n"},
		{name: "csv_missing_column", format: FormatCSV, input: "path_hash,states,url\nh,,u\n", wantErr: ErrMissingColumn},
		{name: "unknown_format", format: Format(7), input: "", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.format).Load(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadCSVInvalidBool(t *testing.T) {
	entries, err := New(FormatCSV).Load(context.Background(), strings.NewReader("path_hash,states,on_cloud,digests,url\nh,,maybe,,u\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Error(t, entries[0].Err)
	assert.Contains(t, entries[0].Err.Error(), "on_cloud")
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(FormatJSONLines).Load(ctx, strings.NewReader("[\"a\",[],false,\"\",\"\"]\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
