package assistant

import (
	"fmt"
	"regexp"
	"strings"
)

// IntentKind is the classification of a chat message.
type IntentKind int

const (
	IntentHelp IntentKind = iota + 1
	IntentClarify
	IntentAction
	IntentGoal
	IntentStrategy
	IntentKnowledge
	IntentSingleStock
	IntentCompare
	IntentTopical
	IntentDynamic
)

var intentNames = map[IntentKind]string{
	IntentHelp:        "help",
	IntentClarify:     "clarify",
	IntentAction:      "action",
	IntentGoal:        "goal",
	IntentStrategy:    "strategy",
	IntentKnowledge:   "knowledge",
	IntentSingleStock: "single-stock",
	IntentCompare:     "compare",
	IntentTopical:     "topical",
	IntentDynamic:     "dynamic",
}

func (k IntentKind) String() string {
	if n, ok := intentNames[k]; ok {
		return n
	}
	return fmt.Sprintf("intent(%d)", int(k))
}

// Topic tags for the topical fallback buckets.
const (
	TagMarketOverview = "market-overview"
	TagOpportunities  = "opportunities"
	TagRisk           = "risk"
	TagCrypto         = "crypto"
	TagTechSector     = "tech-sector"
)

// Intent is a classified message. Only the fields relevant to Kind are set.
type Intent struct {
	Kind    IntentKind
	Command Command  // IntentAction
	Themes  []string // IntentStrategy, in table order
	Topic   string   // IntentKnowledge
	Symbols []string // IntentSingleStock (one) and IntentCompare (up to four)
	Tag     string   // IntentTopical
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentAction:
		return "action:" + i.Command.Kind.String()
	case IntentStrategy:
		return "strategy:" + strings.Join(i.Themes, ",")
	case IntentKnowledge:
		return "knowledge:" + i.Topic
	case IntentSingleStock, IntentCompare:
		return i.Kind.String() + ":" + strings.Join(i.Symbols, ",")
	case IntentTopical:
		return "topical:" + i.Tag
	}
	return i.Kind.String()
}

// rule is one step of the classification cascade.
type rule struct {
	name  string
	match func(r *Router, msg string) (Intent, bool)
}

// Router classifies messages with an ordered rule list. The first rule
// that matches wins, so the order below is part of the contract:
//
//  1. help        degenerate input: shorter than 5 characters or filler
//  2. clarify     action verb with no object ("do it")
//  3. action      an action template (see ParseCommand)
//  4. goal        amount + target verb + currency
//  5. strategy    portfolio-suggestion verb, or theme keyword with an investing noun
//  6. knowledge   question pattern + topic keyword
//  7. tickers     uppercase 3-5 letter tokens minus stop words
//  8. topical     overview, opportunities, risk, crypto, tech sector
//  9. dynamic     everything else
type Router struct {
	tables *Tables
	rules  []rule
}

// NewRouter builds a router over the given tables.
func NewRouter(tables *Tables) *Router {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Router{
		tables: tables,
		rules: []rule{
			{"help", matchHelp},
			{"clarify", matchClarify},
			{"action", matchAction},
			{"goal", matchGoal},
			{"strategy", matchStrategy},
			{"knowledge", matchKnowledge},
			{"tickers", matchTickers},
			{"topical", matchTopical},
		},
	}
}

// Rules returns the rule names in evaluation order.
func (r *Router) Rules() []string {
	names := make([]string, 0, len(r.rules)+1)
	for _, rl := range r.rules {
		names = append(names, rl.name)
	}
	return append(names, "dynamic")
}

// Classify returns the intent of msg. It is a pure function of the text
// and never fails: unmatched input is IntentDynamic.
func (r *Router) Classify(msg string) Intent {
	msg = strings.TrimSpace(msg)
	for _, rl := range r.rules {
		if in, ok := rl.match(r, msg); ok {
			return in
		}
	}
	return Intent{Kind: IntentDynamic}
}

// ── Rules ──

// MinMessageLength is the shortest message not treated as degenerate.
const MinMessageLength = 5

var fillers = map[string]bool{
	"ok": true, "okay": true, "k": true, "kk": true, "thanks": true, "thank you": true,
	"thx": true, "ty": true, "cool": true, "nice": true, "great": true, "yes": true,
	"no": true, "yep": true, "nope": true, "sure": true, "hmm": true, "lol": true,
	"hello": true, "hey": true, "hi there": true, "got it": true, "alright": true,
}

var (
	clarifyRe    = regexp.MustCompile(`(?i)^(?:please\s+)?(?:make it|do it|show this|show me this|do that|make that|show it)(?:\s+please)?[.!?]*$`)
	goalVerbRe   = regexp.MustCompile(`(?i)\b(?:into|become|becomes|reach|turn\s+(?:it\s+)?into|goal)\b`)
	currencyRe   = regexp.MustCompile(`(?i)[$€]|\b(?:dollars?|euros?|usd|eur|bucks)\b`)
	digitRe      = regexp.MustCompile(`\d`)
	suggestRe    = regexp.MustCompile(`(?i)\b(?:make|create|build|suggest|recommend)\b.*\bportfolio\b`)
	investNounRe = regexp.MustCompile(`(?i)\b(?:stocks?|shares|investments?|investing|invest|picks|ideas|portfolio|buy|etfs?)\b`)
	questionRe   = regexp.MustCompile(`(?i)\b(?:what\s+is|what's|whats|what\s+are|how\s+to|how\s+do|how\s+does|when|why|best|should\s+i|difference|explain|define|meaning)\b`)
)

func normalizeFiller(msg string) string {
	return strings.Trim(strings.ToLower(msg), " .!?,")
}

func matchHelp(_ *Router, msg string) (Intent, bool) {
	if len([]rune(msg)) < MinMessageLength || fillers[normalizeFiller(msg)] {
		return Intent{Kind: IntentHelp}, true
	}
	return Intent{}, false
}

func matchClarify(_ *Router, msg string) (Intent, bool) {
	if clarifyRe.MatchString(msg) {
		return Intent{Kind: IntentClarify}, true
	}
	return Intent{}, false
}

func matchAction(r *Router, msg string) (Intent, bool) {
	if cmd, ok := ParseCommand(msg, r.tables); ok {
		return Intent{Kind: IntentAction, Command: cmd}, true
	}
	return Intent{}, false
}

func matchGoal(_ *Router, msg string) (Intent, bool) {
	if digitRe.MatchString(msg) && goalVerbRe.MatchString(msg) && currencyRe.MatchString(msg) {
		return Intent{Kind: IntentGoal}, true
	}
	return Intent{}, false
}

func matchStrategy(r *Router, msg string) (Intent, bool) {
	themes := r.tables.MatchThemes(msg)
	if len(themes) == 0 && !suggestRe.MatchString(msg) {
		return Intent{}, false
	}
	if len(themes) > 0 && !suggestRe.MatchString(msg) && !investNounRe.MatchString(msg) {
		return Intent{}, false
	}
	in := Intent{Kind: IntentStrategy}
	for _, th := range themes {
		in.Themes = append(in.Themes, th.Name)
	}
	if len(in.Themes) == 0 {
		in.Themes = []string{DefaultTheme}
	}
	return in, true
}

func matchKnowledge(r *Router, msg string) (Intent, bool) {
	if !questionRe.MatchString(msg) {
		return Intent{}, false
	}
	if tp, ok := r.tables.MatchTopic(msg); ok {
		return Intent{Kind: IntentKnowledge, Topic: tp.Name}, true
	}
	return Intent{}, false
}

func matchTickers(_ *Router, msg string) (Intent, bool) {
	syms := ExtractTickers(msg)
	switch {
	case len(syms) >= 2 || (len(syms) == 1 && wantsComparison(msg)):
		return Intent{Kind: IntentCompare, Symbols: capSymbols(syms)}, true
	case len(syms) == 1:
		return Intent{Kind: IntentSingleStock, Symbols: syms}, true
	}
	return Intent{}, false
}

// topicalBuckets are checked in order.
var topicalBuckets = []struct {
	tag string
	re  *regexp.Regexp
}{
	{TagMarketOverview, regexp.MustCompile(`(?i)\b(?:market\s+overview|overview|how\s+(?:is|are)\s+(?:the\s+)?markets?|markets?\s+today|indices|indexes|market\s+summary)\b`)},
	{TagOpportunities, regexp.MustCompile(`(?i)\b(?:opportunit(?:y|ies)|what\s+(?:to|should\s+i)\s+buy|buy\s+now|bargains?|undervalued|buy\s+the\s+dip|good\s+buys?)\b`)},
	{TagRisk, regexp.MustCompile(`(?i)\b(?:risk|risky|volatil\w*|vix|fear|crash|safe\s+haven|danger\w*)\b`)},
	{TagCrypto, regexp.MustCompile(`(?i)\b(?:bitcoin|btc|ethereum|eth|crypto\w*)\b`)},
	{TagTechSector, regexp.MustCompile(`(?i)\b(?:sectors?|semiconductors?|chips?|tech)\b`)},
}

func matchTopical(_ *Router, msg string) (Intent, bool) {
	for _, b := range topicalBuckets {
		if b.re.MatchString(msg) {
			return Intent{Kind: IntentTopical, Tag: b.tag}, true
		}
	}
	return Intent{}, false
}
