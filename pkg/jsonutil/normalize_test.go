package jsonutil

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "nan becomes nil", in: math.NaN(), want: nil},
		{name: "positive inf becomes nil", in: math.Inf(1), want: nil},
		{name: "plain float passes", in: 12.5, want: 12.5},
		{name: "int widens", in: int(3), want: int64(3)},
		{name: "int32 widens", in: int32(3), want: int64(3)},
		{name: "time formats", in: ts, want: "2024-01-05T10:30:00Z"},
		{name: "bytes become string", in: []byte("abc"), want: "abc"},
		{name: "json number int", in: json.Number("42"), want: int64(42)},
		{name: "json number float", in: json.Number("1.5"), want: 1.5},
		{name: "string passes", in: "hello", want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_WalksContainers(t *testing.T) {
	in := map[string]any{
		"ratio": math.NaN(),
		"items": []any{math.Inf(-1), 1.0},
	}
	got := Normalize(in).(map[string]any)

	assert.Nil(t, got["ratio"])
	items := got["items"].([]any)
	assert.Nil(t, items[0])
	assert.Equal(t, 1.0, items[1])
}

func TestNormalizeRows(t *testing.T) {
	rows := []map[string]any{
		{"valor": math.NaN(), "cliente": "ana"},
	}
	got := NormalizeRows(rows)

	assert.Nil(t, got[0]["valor"])
	assert.Equal(t, "ana", got[0]["cliente"])
	// Input is left untouched.
	assert.True(t, math.IsNaN(rows[0]["valor"].(float64)))
}
