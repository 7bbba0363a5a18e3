package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
document_ai:
  project_id: demo
  processor_id: abc123
process_keys:
  - keyValue: executedOnDate
    precedence: [hawb, prealert]
  - keyValue: importer
    precedence: {}
  - keyValue: goodsDescription
    fallback: true
truncation:
  accountNumber: 10
render:
  markdown: true
audit:
  sqlite_path: audit.db
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, c.Level())
	assert.Equal(t, 4, c.Render.Workers)
	assert.True(t, c.Render.Markdown)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "audit.db", c.Audit.SQLitePath)

	require.Len(t, c.ProcessKeys, 3)
	assert.Equal(t, []string{"hawb", "prealert"}, []string(c.ProcessKeys[0].Precedence))
	assert.Empty(t, c.ProcessKeys[1].Precedence)
	assert.True(t, c.ProcessKeys[2].Fallback)

	dai := c.GoogleDocumentAI()
	require.NotNil(t, dai)
	assert.Equal(t, "us", dai.Location)
	assert.Equal(t, "abc123", dai.ProcessorID)
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, c.Level())
	assert.Nil(t, c.GoogleDocumentAI())
	assert.Equal(t, Default(), c)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative workers", "render: {workers: -1}"},
		{"duplicate key", "process_keys: [{keyValue: a}, {keyValue: a}]"},
		{"missing key", "process_keys: [{precedence: [hawb]}]"},
		{"negative truncation", "truncation: {name: -5}"},
		{"bad level", "log_level: loud"},
		{"bad skip pattern", "render: {skip_files: '('}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_BadPrecedence(t *testing.T) {
	_, err := Parse([]byte("process_keys: [{keyValue: a, precedence: {x: 1}}]"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.ProcessKeys, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestFlattenConfig(t *testing.T) {
	c, err := Parse([]byte(sample + "fix_typos: true\nstrict_namespaces: true\n"))
	require.NoError(t, err)

	fc := c.FlattenConfig(slog.Default())
	assert.Equal(t, 10, fc.Collector.Truncation["accountNumber"])
	assert.Equal(t, 100, fc.Collector.Truncation["name"])
	assert.True(t, fc.Resolver.Style.FixTypos)
	assert.True(t, fc.StrictNamespaces)

	rc := c.RendererConfig(slog.Default())
	assert.True(t, rc.Markdown)
	assert.True(t, rc.SkipFiles.MatchString("email_file_2.pdf"))
}
