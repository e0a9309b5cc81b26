package assistant

import (
	"regexp"
	"strings"
)

// MaxCompareSymbols caps how many symbols a comparison covers.
const MaxCompareSymbols = 4

var tickerRe = regexp.MustCompile(`\b[A-Z]{3,5}\b`)

// StopWords are uppercase 3-5 letter tokens that are never treated as
// tickers: common English words, finance jargon and place names. An entry
// here always wins over ticker extraction.
var StopWords = map[string]bool{
	// common English
	"THE": true, "AND": true, "FOR": true, "ARE": true, "BUT": true, "NOT": true,
	"YOU": true, "ALL": true, "ANY": true, "CAN": true, "HAD": true, "HER": true,
	"WAS": true, "ONE": true, "OUR": true, "OUT": true, "DAY": true, "GET": true,
	"HAS": true, "HIM": true, "HIS": true, "HOW": true, "MAN": true, "NEW": true,
	"NOW": true, "OLD": true, "SEE": true, "TWO": true, "WAY": true, "WHO": true,
	"DID": true, "ITS": true, "LET": true, "PUT": true, "SAY": true, "SHE": true,
	"TOO": true, "USE": true, "YES": true, "YET": true, "OFF": true, "OWN": true,
	"WHAT": true, "WHEN": true, "WHY": true, "WITH": true, "THIS": true, "THAT": true,
	"FROM": true, "HAVE": true, "WILL": true, "YOUR": true, "ABOUT": true, "THEM": true,
	"THEY": true, "THEN": true, "THAN": true, "BEEN": true, "WERE": true, "SOME": true,
	"MORE": true, "MOST": true, "MUCH": true, "VERY": true, "JUST": true, "ALSO": true,
	"ONLY": true, "OVER": true, "INTO": true, "LIKE": true, "WELL": true, "GOOD": true,
	"BEST": true, "BAD": true, "HIGH": true, "LOW": true, "NEXT": true, "LAST": true,
	"WEEK": true, "YEAR": true, "MONTH": true, "TODAY": true, "DOES": true, "DOING": true,
	"SHOULD": true, "COULD": true, "WOULD": true, "WHICH": true, "WHERE": true, "THERE": true,
	"THESE": true, "THOSE": true, "OTHER": true, "AFTER": true, "BEFORE": true, "STILL": true,
	"PLEASE": true, "THANK": true, "THANKS": true, "HELLO": true, "HEY": true, "HELP": true,
	"OKAY": true, "SURE": true, "MAYBE": true, "REALLY": true, "GREAT": true, "NICE": true,
	"SHOW": true, "TELL": true, "GIVE": true, "MAKE": true, "TAKE": true, "WANT": true,
	"NEED": true, "KNOW": true, "THINK": true, "LOOK": true, "CHECK": true, "FIND": true,
	"ABOVE": true, "BELOW": true, "UNDER": true, "ADD": true, "DROP": true, "MY": true,
	// finance jargon
	"BUY": true, "SELL": true, "HOLD": true, "LONG": true, "SHORT": true, "CALL": true,
	"PUTS": true, "CALLS": true, "STOCK": true, "SHARE": true, "PRICE": true, "CASH": true,
	"BOND": true, "BONDS": true, "FUND": true, "FUNDS": true, "INDEX": true, "TRADE": true,
	"RISK": true, "BULL": true, "BEAR": true, "DIP": true, "MOON": true, "PUMP": true,
	"DUMP": true, "HODL": true, "FOMO": true, "YOLO": true, "ETF": true, "ETFS": true,
	"IPO": true, "CEO": true, "CFO": true, "CTO": true, "EPS": true, "GDP": true,
	"CPI": true, "PPI": true, "FED": true, "FOMC": true, "SEC": true, "IRS": true,
	"RSI": true, "MACD": true, "EMA": true, "SMA": true, "ATH": true, "ATL": true,
	"YTD": true, "QOQ": true, "YOY": true, "ROI": true, "ROE": true, "APR": true,
	"APY": true, "IRA": true, "DCA": true, "NAV": true, "AUM": true, "OTC": true,
	"LLC": true, "INC": true, "CORP": true, "LTD": true, "USD": true, "EUR": true,
	"GBP": true, "JPY": true, "CHF": true, "CAD": true, "AUD": true, "CNY": true,
	"VIX": true, "API": true, "FAQ": true, "NYSE": true, "REIT": true, "ESG": true,
	"GAIN": true, "LOSS": true, "LOSE": true, "MONEY": true, "PROFIT": true, "DEBT": true,
	"RATE": true, "RATES": true, "YIELD": true, "CRASH": true, "RALLY": true, "TREND": true,
	// places
	"USA": true, "NYC": true, "EUROPE": true, "ASIA": true, "CHINA": true, "JAPAN": true,
	"INDIA": true, "UK": true, "EU": true, "US": true, "GERMANY": true, "PARIS": true,
	"LONDON": true, "TOKYO": true, "TEXAS": true,
	// chat filler
	"LOL": true, "OMG": true, "IMO": true, "IMHO": true, "TBH": true, "ASAP": true,
	"FYI": true, "PLS": true, "PLZ": true, "THX": true, "BTW": true, "IDK": true,
	"WTF": true, "ETC": true, "AKA": true, "DIY": true, "TLDR": true,
}

// ExtractTickers returns the 3-5 letter uppercase tokens of msg that are
// not stop words, deduplicated in order of first appearance.
func ExtractTickers(msg string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range tickerRe.FindAllString(msg, -1) {
		if StopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

var compareRe = regexp.MustCompile(`(?i)\b(compare|comparison|vs\.?|versus)\b`)

// wantsComparison reports whether msg asks for a comparison.
func wantsComparison(msg string) bool {
	return compareRe.MatchString(msg)
}

// capSymbols trims a symbol list to the comparison cap.
func capSymbols(symbols []string) []string {
	if len(symbols) > MaxCompareSymbols {
		return symbols[:MaxCompareSymbols]
	}
	return symbols
}

// upper is strings.ToUpper for symbols taken from case-insensitive matches.
func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
