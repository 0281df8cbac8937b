package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
engine:
  max_workers: 4
  isolation: process
catalog:
  - name: annotations
    type: genes
    columns:
      gene_id: stable identifier
      symbol: display name
    source:
      kind: http
      url: https://example.org/annotations.csv
      rate_per_second: 2
      retries: 3
    format:
      kind: csv
      fold_headers: true
  - name: expression
    type: genes
    source:
      kind: file
      path: /data/expression.tsv
    format:
      kind: tsv
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.MaxWorkers)
	assert.Equal(t, "process", cfg.Engine.Isolation)
	require.Len(t, cfg.Catalog, 2)

	first := cfg.Catalog[0]
	assert.Equal(t, "annotations", first.Name)
	assert.Equal(t, "genes", first.Type)
	assert.Equal(t, "stable identifier", first.Columns["gene_id"])
	assert.Equal(t, "http", first.Source.Kind)
	assert.Equal(t, 3, first.Source.Retries)
	assert.True(t, first.Format.FoldHeaders)

	assert.Equal(t, "file", cfg.Catalog[1].Source.Kind)
	assert.Equal(t, "tsv", cfg.Catalog[1].Format.Kind)
}

func TestParseConfig_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{
			name:     "empty catalog",
			yaml:     "engine:\n  max_workers: 1\n",
			errorMsg: "config validation failed",
		},
		{
			name: "unknown field",
			yaml: validConfigYAML + "\nextra_field: true\n",
			// KnownFields(true) turns typos into decode errors.
			errorMsg: "decode config",
		},
		{
			name: "bad isolation mode",
			yaml: `
engine:
  isolation: fibers
catalog:
  - name: a
    type: t
    source: {kind: file, path: /tmp/a.csv}
    format: {kind: csv}
`,
			errorMsg: "config validation failed",
		},
		{
			name: "http source without url",
			yaml: `
catalog:
  - name: a
    type: t
    source: {kind: http}
    format: {kind: csv}
`,
			errorMsg: "config validation failed",
		},
		{
			name: "s3 source without bucket",
			yaml: `
catalog:
  - name: a
    type: t
    source: {kind: s3, endpoint: play.min.io, key: data.csv}
    format: {kind: csv}
`,
			errorMsg: "config validation failed",
		},
		{
			name: "unknown format kind",
			yaml: `
catalog:
  - name: a
    type: t
    source: {kind: file, path: /tmp/a.xml}
    format: {kind: xml}
`,
			errorMsg: "config validation failed",
		},
		{
			name: "duplicate interface names",
			yaml: `
catalog:
  - name: a
    type: t
    source: {kind: file, path: /tmp/a.csv}
    format: {kind: csv}
  - name: a
    type: u
    source: {kind: file, path: /tmp/b.csv}
    format: {kind: csv}
`,
			errorMsg: `duplicate interface name "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mosaic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfigYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Catalog, 2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery([]byte(`
type: genes
interfaces: [annotations, expression]
produced_by: "0.3.0"
`))
	require.NoError(t, err)
	assert.Equal(t, "genes", q.Type)
	assert.Equal(t, []string{"annotations", "expression"}, q.Interfaces)
	assert.Equal(t, "0.3.0", q.ProducedBy)
}

func TestParseQuery_Rejections(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing type", yaml: "interfaces: [a]\n"},
		{name: "empty interfaces", yaml: "type: genes\ninterfaces: []\n"},
		{name: "blank interface name", yaml: "type: genes\ninterfaces: ['']\n"},
		{name: "unknown field", yaml: "type: genes\ninterfaces: [a]\nbogus: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
