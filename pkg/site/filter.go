package site

import (
	"github.com/spf13/cast"

	"github.com/jlrickert/stanza/pkg/internal"
)

// FilterSet evaluates the configured content filters against a file's data.
// A file is filtered out when any configured filter matches (logical OR,
// short-circuiting on the first match). Filtered files stay in the item
// graph but are skipped at write time.
type FilterSet struct {
	// Metadata filters a file whose data is a superset of these key/value
	// pairs. Nil means the filter is not configured.
	Metadata map[string]any `mapstructure:"metadata"`

	// FutureDate filters a file whose date lies strictly after "now". Nil
	// means the filter is not configured.
	FutureDate *FutureDateFilter `mapstructure:"futureDate"`

	// Clock supplies "now" for FutureDate. Left nil, the wall clock is used;
	// tests inject a FixedClock.
	Clock internal.Clock `mapstructure:"-"`
}

// FutureDateFilter configures the futureDate filter. Key names the data
// field holding the date and defaults to "date".
type FutureDateFilter struct {
	Key string `mapstructure:"key"`
}

// IsFiltered reports whether data matches any configured filter. The
// futureDate check reads the clock at evaluation time, which makes the
// result time-dependent; that is intentional content scheduling, not a bug.
func (fs *FilterSet) IsFiltered(data map[string]any) bool {
	if fs == nil {
		return false
	}
	if len(fs.Metadata) > 0 && metadataMatches(data, fs.Metadata) {
		return true
	}
	if fs.FutureDate != nil && fs.futureDateMatches(data) {
		return true
	}
	return false
}

func metadataMatches(data, want map[string]any) bool {
	for k, v := range want {
		got, ok := data[k]
		if !ok || !valueEqual(got, v) {
			return false
		}
	}
	return true
}

func (fs *FilterSet) futureDateMatches(data map[string]any) bool {
	key := fs.FutureDate.Key
	if key == "" {
		key = "date"
	}
	raw, ok := data[key]
	if !ok {
		return false
	}
	t, err := cast.ToTimeE(raw)
	if err != nil {
		return false
	}
	clk := fs.Clock
	if clk == nil {
		clk = internal.RealClock{}
	}
	return t.After(clk.Now())
}
