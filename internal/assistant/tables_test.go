package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tb := DefaultTables()

	var names []string
	for _, th := range tb.Themes {
		names = append(names, th.Name)
	}
	assert.Equal(t, []string{"european", "cheap", "tech", "dividend", "growth", "safe",
		"beginner", "asian", "green", "crypto", "balanced"}, names)

	tech, ok := tb.Theme("tech")
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMD"}, tech.Symbols)
	assert.NotEmpty(t, tb.Tips)
}

func TestMatchThemesWholeWords(t *testing.T) {
	tb := DefaultTables()
	tests := []struct {
		msg  string
		want []string
	}{
		{"Suggest dividend stocks", []string{"dividend"}},
		{"safe and green ideas", []string{"safe", "green"}},
		{"biotechnology", nil},
		{"Clean Energy plays", []string{"green"}},
	}
	for _, tt := range tests {
		var got []string
		for _, th := range tb.MatchThemes(tt.msg) {
			got = append(got, th.Name)
		}
		assert.Equal(t, tt.want, got, "MatchThemes(%q)", tt.msg)
	}
}

func TestMatchTopicTableOrder(t *testing.T) {
	tb := DefaultTables()
	// "dividend" and "stock" both match; the earlier topic wins
	tp, ok := tb.MatchTopic("what is a dividend stock")
	require.True(t, ok)
	assert.Equal(t, "dividend", tp.Name)

	_, ok = tb.MatchTopic("nothing relevant")
	assert.False(t, ok)
}

func TestParseTablesValidates(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "themes: ["},
		{"theme without symbols", "themes:\n  - name: x\ntips: [t]\n"},
		{"missing balanced", "themes:\n  - name: x\n    symbols: [A]\ntips: [t]\n"},
		{"no tips", "themes:\n  - name: balanced\n    symbols: [SPY]\n"},
	}
	for _, tt := range tests {
		if _, err := ParseTables([]byte(tt.yaml)); err == nil {
			t.Errorf("ParseTables(%s): expected error", tt.name)
		}
	}

	tb, err := ParseTables([]byte("themes:\n  - name: balanced\n    symbols: [SPY]\ntips: [t]\n"))
	require.NoError(t, err)
	_, ok := tb.Theme("balanced")
	assert.True(t, ok)
}
