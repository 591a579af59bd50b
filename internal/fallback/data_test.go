package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDataClone(t *testing.T) {
	nested := []any{"shared"}
	orig := &Data{
		Records:      []map[string]any{{"a": 1, "nested": nested}},
		Metadata:     map[string]any{"src": "x"},
		CapturedAtMs: 10,
	}
	cp := orig.Clone()
	assert.Equal(t, orig, cp)

	cp.Records[0]["a"] = 2
	cp.Records = append(cp.Records, map[string]any{"b": 1})
	cp.Metadata["src"] = "y"

	assert.Equal(t, 1, orig.Records[0]["a"])
	assert.Len(t, orig.Records, 1)
	assert.Equal(t, "x", orig.Metadata["src"])

	var nilData *Data
	assert.Nil(t, nilData.Clone())

	assert.Nil(t, (&Data{}).Clone().Records, "nil records stay nil")
	assert.Nil(t, (&Data{}).Clone().Metadata, "nil metadata stays nil")
}

func TestDataCapturedAt(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	d := &Data{CapturedAtMs: at.UnixMilli()}
	assert.True(t, at.Equal(d.CapturedAt()))
}
