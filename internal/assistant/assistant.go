// Package assistant implements the rule-based market chat assistant: an
// ordered intent router, goal and action handling, and analysis reports
// computed from live quotes and price history.
package assistant

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

// Assistant answers chat messages. It is safe for concurrent use.
type Assistant struct {
	engine *Engine
	router *Router
	caps   Capabilities
	log    zerolog.Logger
	opts   Options

	randMu *sync.Mutex // guards opts.Rand, shared by copies
}

// New creates an assistant over data. caps may be nil, in which case
// watchlist and portfolio actions reply that they are unavailable.
func New(data MarketData, opts Options, caps Capabilities) *Assistant {
	opts = opts.withDefaults()
	return &Assistant{
		engine: NewEngine(data, opts),
		router: NewRouter(opts.Tables),
		caps:   caps,
		log:    opts.Logger,
		opts:   opts,
		randMu: new(sync.Mutex),
	}
}

// Engine returns the report engine.
func (a *Assistant) Engine() *Engine { return a.engine }

// Router returns the intent router.
func (a *Assistant) Router() *Router { return a.router }

// WithCapabilities returns a copy of a that executes actions against caps.
// The engine and its caches are shared.
func (a *Assistant) WithCapabilities(caps Capabilities) *Assistant {
	return &Assistant{
		engine: a.engine,
		router: a.router,
		caps:   caps,
		log:    a.log,
		opts:   a.opts,
		randMu: a.randMu,
	}
}

var (
	dynNumberRe = regexp.MustCompile(`\d`)
	dynActRe    = regexp.MustCompile(`(?i)\bwhat\s+(?:should|do|can)\s+i\s+do\b`)
	dynWhyRe    = regexp.MustCompile(`(?i)\bwhy\b`)
)

// Respond answers msg and returns the updated conversation context.
// It never fails: a panic inside a report is logged and turned into a
// fixed apology with a tip.
func (a *Assistant) Respond(ctx context.Context, msg string, cc ConversationContext) (reply string, next ConversationContext) {
	var in Intent
	next = cc

	defer func() {
		if r := recover(); r != nil {
			a.log.Error().
				Str("intent", in.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("response generation failed")
			reply, next = a.fallback(), cc
		}
	}()

	in = a.router.Classify(msg)
	a.log.Debug().Str("intent", in.String()).Msg("classified message")
	return a.dispatch(ctx, msg, in, cc)
}

func (a *Assistant) dispatch(ctx context.Context, msg string, in Intent, cc ConversationContext) (string, ConversationContext) {
	e := a.engine
	switch in.Kind {
	case IntentHelp:
		return HelpText, cc
	case IntentClarify:
		return ClarifyText, cc
	case IntentAction:
		return Execute(in.Command, a.caps, a.opts.Tables, a.opts.goalDefaults()), cc
	case IntentGoal:
		g := ParseGoal(msg, cc, a.opts.goalDefaults())
		return GoalAdvice(g), cc.Remember(g)
	case IntentStrategy:
		return e.StrategyIdeas(ctx, in.Themes), cc
	case IntentKnowledge:
		return e.Knowledge(in.Topic), cc
	case IntentSingleStock:
		return e.DeepStockAnalysis(ctx, in.Symbols[0]), cc
	case IntentCompare:
		return e.CompareStocks(ctx, in.Symbols), cc
	case IntentTopical:
		switch in.Tag {
		case TagMarketOverview:
			return e.MarketOverview(ctx), cc
		case TagOpportunities:
			return e.FindOpportunities(ctx), cc
		case TagRisk:
			return e.RiskAnalysis(ctx), cc
		case TagCrypto:
			return e.CryptoAnalysis(ctx), cc
		case TagTechSector:
			return e.SectorAnalysis(ctx), cc
		}
	}

	switch {
	case dynNumberRe.MatchString(msg):
		return e.InvestmentAdvice(ctx, msg, cc)
	case dynActRe.MatchString(msg):
		return e.MarketAnalysis(ctx), cc
	case dynWhyRe.MatchString(msg):
		return e.ExplainMovement(ctx), cc
	}
	return e.LiveSnapshot(ctx), cc
}

func (a *Assistant) fallback() string {
	tips := a.opts.Tables.Tips
	if len(tips) == 0 {
		return FallbackText
	}
	a.randMu.Lock()
	tip := tips[a.opts.Rand.Intn(len(tips))]
	a.randMu.Unlock()
	return FallbackText + "\n\n**Tip:** " + tip
}
