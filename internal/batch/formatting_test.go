package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	return &Result{
		ID: "scan-1",
		Entries: []*EntryReport{
			{Path: "/in/hero.spr", Size: 12, Digest: "abc", Decoder: "sprite", Score: 75, Kind: "image",
				Width: 2, Height: 1, Reason: "ok"},
			{Path: "/in/intro.scr", Size: 9, Decoder: "script-text", Score: 25, Kind: "text", TextBytes: 7, Reason: "ok"},
			nil,
			{Path: "/in/blob.bin", Size: 4, Error: "no candidate decoder", Reason: "no_candidate"},
		},
		Paths:       []string{"/in/hero.spr", "/in/intro.scr", "/in/gone", "/in/blob.bin"},
		Duration:    2 * time.Second,
		WorkerCount: 2,
	}
}

func TestFormatResults_Text(t *testing.T) {
	out, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	assert.Contains(t, out, "# /in/hero.spr\ndecoder: sprite (score 75)\nkind: image 2x1\n")
	assert.Contains(t, out, "kind: text 7 bytes")
	assert.Contains(t, out, "error (no_candidate): no candidate decoder")
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var doc struct {
		Scan    string `json:"scan"`
		Entries []struct {
			Path    string `json:"path"`
			Decoder string `json:"decoder"`
			Reason  string `json:"reason"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "scan-1", doc.Scan)
	require.Len(t, doc.Entries, 3)
	assert.Equal(t, "sprite", doc.Entries[0].Decoder)
	assert.Equal(t, "no_candidate", doc.Entries[2].Reason)
}

func TestFormatResults_YAML(t *testing.T) {
	out, err := sampleResult().FormatResults("yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "scan-1", doc["scan"])
	assert.Len(t, doc["entries"], 3)
}

func TestFormatResults_CSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "path", rows[0][0])
	assert.Equal(t, []string{"/in/hero.spr", "12", "abc", "sprite", "75", "image", "2", "1", "0", "", "ok", ""}, rows[1])
}

func TestFormatResults_InvalidFormat(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestSaveResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleResult().SaveResults(&buf, "text", ""))
	assert.Contains(t, buf.String(), "# /in/hero.spr")

	path := filepath.Join(t.TempDir(), "out.json")
	buf.Reset()
	require.NoError(t, sampleResult().SaveResults(&buf, "json", path))
	assert.Empty(t, buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scan": "scan-1"`)

	require.Error(t, sampleResult().SaveResults(&buf, "xml", ""))
	require.Error(t, sampleResult().SaveResults(&buf, "json", filepath.Join(t.TempDir(), "missing", "out.json")))
}

func TestStatsAndPrintStats(t *testing.T) {
	r := sampleResult()
	stats := r.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, map[string]int{"sprite": 1, "script-text": 1}, stats.ByDecoder)
	assert.Equal(t, 1, stats.ByReason["no_candidate"])

	var buf bytes.Buffer
	r.PrintStats(&buf)
	assert.Contains(t, buf.String(), "Scan: scan-1")
	assert.Contains(t, buf.String(), "Failed: 1")
	assert.Contains(t, buf.String(), "script-text: 1")
}
