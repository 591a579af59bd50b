package records

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	in := "\ufeffname, price\nalpha,12\n\nbeta,\"1,5\"\ngamma\n"
	got, err := Load(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)

	want := []map[string]any{
		{"name": "alpha", "price": "12"},
		{"name": "beta", "price": "1,5"},
		{"name": "gamma"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCSVHeaderOnly(t *testing.T) {
	got, err := Load(strings.NewReader("a,b\n"), FormatCSV)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := Load(strings.NewReader(""), FormatCSV)
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Load(strings.NewReader("a\n1,2\n"), FormatCSV)
	assert.ErrorContains(t, err, "header has 1")

	_, err = Load(strings.NewReader("a\n\"unterminated\n"), FormatCSV)
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	got, err := Load(strings.NewReader(`[{"a":1,"b":{"c":true}},{"a":2.5}]`), FormatJSON)
	require.NoError(t, err)

	want := []map[string]any{
		{"a": json.Number("1"), "b": map[string]any{"c": true}},
		{"a": json.Number("2.5")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadJSONEdgeCases(t *testing.T) {
	got, err := Load(strings.NewReader("  \n"), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Load(strings.NewReader("null"), FormatJSON)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = Load(strings.NewReader(`{"a":1}`), FormatJSON)
	assert.Error(t, err)

	_, err = Load(strings.NewReader(`[{"a":1}] [{}]`), FormatJSON)
	assert.ErrorContains(t, err, "trailing data")

	_, err = Load(strings.NewReader(`[{"a":1}, null]`), FormatJSON)
	assert.ErrorContains(t, err, "element 1 is null")
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load(strings.NewReader(""), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Format(""), f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "prices.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"a":1}]`), 0o644))
	csvPath := filepath.Join(dir, "prices.txt")
	require.NoError(t, os.WriteFile(csvPath, []byte("a\n1\n"), 0o644))

	got, err := LoadFile(jsonPath, "")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": json.Number("1")}}, got)

	got, err = LoadFile(csvPath, "")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": "1"}}, got)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"src=x", "query=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"src": "x", "query": "a=b", "empty": ""}, got)

	got, err = ParseKeyValues(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseKeyValues([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseKeyValues([]string{"=x"})
	assert.Error(t, err)
}
