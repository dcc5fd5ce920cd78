package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultLabels(t *testing.T) {
	path := writeFile(t, `
labels:
  - name: Urgent
    color: "#ef4444"
    filter: contains(Subject, "urgent")
  - name: Invoices
    color: "#22c55e"
    filter: 'Subject ~= "(?i)invoice|factura"'
  - name: Manual
    color: "#64748b"
`)

	labels, err := LoadDefaultLabels(path)
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, `contains(Subject, "urgent")`, labels[0].Rule)
	assert.Equal(t, `Subject ~= "(?i)invoice|factura"`, labels[1].Rule)
	assert.Equal(t, "", labels[2].Rule)
}

func TestLoadDefaultLabelsMissingFile(t *testing.T) {
	labels, err := LoadDefaultLabels(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.Nil(t, labels)
}

func TestLoadDefaultLabelsInvalid(t *testing.T) {
	_, err := LoadDefaultLabels(writeFile(t, "labels:\n  - name: NoColor\n"))
	assert.ErrorContains(t, err, "needs a name and a color")

	_, err = LoadDefaultLabels(writeFile(t, "labels: [unclosed"))
	assert.Error(t, err)
}
