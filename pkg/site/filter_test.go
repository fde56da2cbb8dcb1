package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jlrickert/stanza/pkg/internal"
)

func TestFilterSet_Nil(t *testing.T) {
	var fs *FilterSet
	require.False(t, fs.IsFiltered(map[string]any{"draft": true}))
}

func TestFilterSet_Metadata(t *testing.T) {
	fs := &FilterSet{Metadata: map[string]any{"draft": true}}

	require.True(t, fs.IsFiltered(map[string]any{"draft": true, "title": "x"}))
	require.False(t, fs.IsFiltered(map[string]any{"draft": false}))
	require.False(t, fs.IsFiltered(map[string]any{"title": "x"}))
}

func TestFilterSet_FutureDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &FilterSet{
		FutureDate: &FutureDateFilter{},
		Clock:      internal.NewFixedClock(now),
	}

	cases := []struct {
		name string
		data map[string]any
		want bool
	}{
		{"future is filtered", map[string]any{"date": now.Add(time.Hour)}, true},
		{"past is kept", map[string]any{"date": now.Add(-time.Hour)}, false},
		{"exactly now is kept", map[string]any{"date": now}, false},
		{"string date", map[string]any{"date": "2030-01-01"}, true},
		{"no date field", map[string]any{"title": "x"}, false},
		{"unparseable date", map[string]any{"date": "not a date"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, fs.IsFiltered(tc.data))
		})
	}
}

func TestFilterSet_FutureDateCustomKey(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fs := &FilterSet{
		FutureDate: &FutureDateFilter{Key: "publishAt"},
		Clock:      internal.NewFixedClock(now),
	}
	require.True(t, fs.IsFiltered(map[string]any{"publishAt": "2030-01-01"}))
	require.False(t, fs.IsFiltered(map[string]any{"date": "2030-01-01"}))
}

func TestFilterSet_OrSemantics(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fs := &FilterSet{
		Metadata:   map[string]any{"draft": true},
		FutureDate: &FutureDateFilter{},
		Clock:      internal.NewFixedClock(now),
	}
	require.True(t, fs.IsFiltered(map[string]any{"draft": true}))
	require.True(t, fs.IsFiltered(map[string]any{"date": "2030-01-01"}))
	require.False(t, fs.IsFiltered(map[string]any{"title": "x"}))
}
