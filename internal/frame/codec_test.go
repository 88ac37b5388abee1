package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.Set(ts("2025-01-01 00:00"), "España", 42.5)
	b.Set(ts("2025-01-01 01:00"), "España", 43.25)
	b.Set(ts("2025-01-01 01:00"), "Portugal", 7.0)
	original := b.Build()

	data, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, original.Len(), decoded.Len())
	assert.Equal(t, original.Columns(), decoded.Columns())
	assert.Equal(t, original.Index(), decoded.Index())
	assert.Equal(t, 42.5, decoded.At(0, "España"))
	assert.Equal(t, 7.0, decoded.At(1, "Portugal"))
	// The hole survives the round trip as a hole.
	assert.True(t, math.IsNaN(decoded.At(0, "Portugal")))
}

func TestCodecEmptyFrame(t *testing.T) {
	data, err := Marshal(New())
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, decoded.IsEmpty())
}

func TestUnmarshalRejectsCorruption(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"version": 1, "index": [`,
		"bad version":     `{"version": 99, "index": [], "columns": []}`,
		"bad timestamp":   `{"version": 1, "index": ["never"], "columns": [{"name": "value", "values": [1]}]}`,
		"not increasing":  `{"version": 1, "index": ["2025-01-01T01:00:00Z", "2025-01-01T00:00:00Z"], "columns": [{"name": "value", "values": [1, 2]}]}`,
		"misaligned":      `{"version": 1, "index": ["2025-01-01T00:00:00Z"], "columns": [{"name": "value", "values": [1, 2]}]}`,
		"unnamed column":  `{"version": 1, "index": ["2025-01-01T00:00:00Z"], "columns": [{"name": "", "values": [1]}]}`,
		"duplicate names": `{"version": 1, "index": ["2025-01-01T00:00:00Z"], "columns": [{"name": "a", "values": [1]}, {"name": "a", "values": [2]}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(raw))
			assert.Error(t, err)
		})
	}
}
