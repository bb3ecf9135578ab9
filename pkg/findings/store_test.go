package findings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreListOnMissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "findings.json"))
	list, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStoreAppendThenList(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "findings.json"))

	require.NoError(t, store.Append(Finding{FilePath: "main.go", Line: 12, Severity: SeverityHigh, Message: "missing nil check"}))
	require.NoError(t, store.Append(Finding{FilePath: "util.go", Severity: SeverityLow, Message: "unused import"}))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "main.go", list[0].FilePath)
	assert.Equal(t, SeverityLow, list[1].Severity)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.json")
	require.NoError(t, NewStore(path).Append(Finding{FilePath: "a.go", Severity: SeverityMedium, Message: "todo"}))

	reopened, err := NewStore(path).List()
	require.NoError(t, err)
	require.Len(t, reopened, 1)
	assert.Equal(t, "a.go", reopened[0].FilePath)
}
