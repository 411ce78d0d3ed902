package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSubjectCatalog_Embedded(t *testing.T) {
	catalog, err := LoadSubjectCatalog("", DefaultCredits)
	require.NoError(t, err)
	assert.Greater(t, catalog.Len(), 0)

	credits, listed := catalog.Credits("21CS301T")
	assert.True(t, listed)
	assert.Equal(t, 3, credits)

	credits, listed = catalog.Credits("21CS301L")
	assert.True(t, listed)
	assert.Equal(t, 2, credits)

	// Unlisted codes fall back to the default weight.
	credits, listed = catalog.Credits("99XX999T")
	assert.False(t, listed)
	assert.Equal(t, DefaultCredits, credits)
}

func TestLoadSubjectCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.json")
	data := `{"21ZZ101T": {"name": "Test Subject", "credits": 5}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	catalog, err := LoadSubjectCatalog(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	credits, listed := catalog.Credits("21ZZ101T")
	assert.True(t, listed)
	assert.Equal(t, 5, credits)

	credits, listed = catalog.Credits("21CS301T")
	assert.False(t, listed)
	assert.Equal(t, 2, credits)
}

func TestLoadSubjectCatalog_BadFile(t *testing.T) {
	_, err := LoadSubjectCatalog(filepath.Join(t.TempDir(), "missing.json"), DefaultCredits)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
	_, err = LoadSubjectCatalog(path, DefaultCredits)
	assert.Error(t, err)
}

func TestLoadExamPeriods_Embedded(t *testing.T) {
	periods, err := LoadExamPeriods("")
	require.NoError(t, err)

	assert.Equal(t, 5, periods["NOV 2024"])
	assert.Equal(t, 6, periods["MAY 2025"])
	assert.Equal(t, 3, periods["NOVEMBER 2023"])
}

func TestLoadExamPeriods_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periods.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"MAY 2026": 8}`), 0644))

	periods, err := LoadExamPeriods(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"MAY 2026": 8}, periods)
}
