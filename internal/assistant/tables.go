package assistant

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// DefaultTheme is used when a portfolio request names no theme.
const DefaultTheme = "balanced"

// Theme is a named, fixed basket of symbols representing an investment style.
type Theme struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Keywords    []string `yaml:"keywords"`
	Symbols     []string `yaml:"symbols"`
	Description string   `yaml:"description"`

	pattern *regexp.Regexp
}

// Topic is a knowledge FAQ entry.
type Topic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`

	pattern *regexp.Regexp
}

// Tables holds the static data the router and executor match against.
// Tables are read-only after loading.
type Tables struct {
	Themes []Theme  `yaml:"themes"`
	Topics []Topic  `yaml:"topics"`
	Tips   []string `yaml:"tips"`

	themeIndex map[string]int
}

var (
	defaultTables     *Tables
	defaultTablesErr  error
	defaultTablesOnce sync.Once
)

// DefaultTables returns the embedded tables, parsed once.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		defaultTables, defaultTablesErr = ParseTables(tablesYAML)
	})
	if defaultTablesErr != nil {
		panic(fmt.Sprintf("assistant: embedded tables: %v", defaultTablesErr))
	}
	return defaultTables
}

// ParseTables parses theme, topic and tip tables from YAML.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}

	t.themeIndex = make(map[string]int, len(t.Themes))
	for i := range t.Themes {
		th := &t.Themes[i]
		if th.Name == "" || len(th.Symbols) == 0 {
			return nil, fmt.Errorf("theme %d: name and symbols are required", i)
		}
		th.pattern = keywordPattern(th.Keywords)
		t.themeIndex[th.Name] = i
	}
	if _, ok := t.themeIndex[DefaultTheme]; !ok {
		return nil, fmt.Errorf("theme %q is missing", DefaultTheme)
	}
	for i := range t.Topics {
		tp := &t.Topics[i]
		if tp.Name == "" || len(tp.Keywords) == 0 {
			return nil, fmt.Errorf("topic %d: name and keywords are required", i)
		}
		tp.pattern = keywordPattern(tp.Keywords)
	}
	if len(t.Tips) == 0 {
		return nil, fmt.Errorf("at least one tip is required")
	}
	return &t, nil
}

// Theme returns the theme with the given name.
func (t *Tables) Theme(name string) (Theme, bool) {
	i, ok := t.themeIndex[name]
	if !ok {
		return Theme{}, false
	}
	return t.Themes[i], true
}

// MatchThemes returns every theme whose keywords occur in msg, in table order.
func (t *Tables) MatchThemes(msg string) []Theme {
	var out []Theme
	for _, th := range t.Themes {
		if th.pattern != nil && th.pattern.MatchString(msg) {
			out = append(out, th)
		}
	}
	return out
}

// MatchTopic returns the first topic whose keywords occur in msg.
func (t *Tables) MatchTopic(msg string) (Topic, bool) {
	for _, tp := range t.Topics {
		if tp.pattern.MatchString(msg) {
			return tp, true
		}
	}
	return Topic{}, false
}

// Topic returns the topic with the given name.
func (t *Tables) Topic(name string) (Topic, bool) {
	for _, tp := range t.Topics {
		if tp.Name == name {
			return tp, true
		}
	}
	return Topic{}, false
}

// keywordPattern builds a case-insensitive whole-word alternation.
func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(k)), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:$|[^a-z0-9])`)
}
