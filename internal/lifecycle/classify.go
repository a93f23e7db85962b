package lifecycle

import (
	"strings"
	"unicode"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

// ClassifyInput is the structured metadata a category is derived from.
type ClassifyInput struct {
	Category string // raw category text from the market source
	Slug     string
	Question string
}

// Classify returns the first category whose predicate matches. Predicates are
// evaluated in domain.Categories order and fall back to OTHER.
func Classify(in ClassifyInput) domain.Category {
	t := newText(in)
	for _, r := range rules {
		if r.match(t) {
			return r.category
		}
	}
	return domain.CategoryOther
}

type rule struct {
	category domain.Category
	match    func(text) bool
}

var rules = []rule{
	{domain.CategorySports, isSports},
	{domain.CategorySocial, isSocial},
	{domain.CategoryCrypto, isCrypto},
	{domain.CategoryEquities, isEquities},
	{domain.CategoryEconomics, isEconomics},
	{domain.CategoryWeather, isWeather},
	{domain.CategoryPolitics, isPolitics},
}

func isSports(t text) bool {
	return t.category.has(sportsCategories...) ||
		t.slug.has(sportsSlugWords...) ||
		t.slug.has(sportsSlugPhrases...) ||
		t.question.has(sportsQuestionPhrases...)
}

func isSocial(t text) bool {
	if t.question.has(socialCountPhrases...) {
		return true
	}
	// "Will X say 'tariff' during the press conference?"
	return t.question.has("say", "mention", "utter") &&
		t.question.has(socialEventPhrases...)
}

func isCrypto(t text) bool {
	return t.category.has("crypto", "cryptocurrency") ||
		t.slug.has(cryptoTokens...) ||
		t.question.has(cryptoTokens...) ||
		t.question.has("up or down")
}

func isEquities(t text) bool {
	return t.category.has("stocks", "equities", "finance") ||
		t.tickers.any(tickers...) ||
		t.question.has(equityPhrases...)
}

func isEconomics(t text) bool {
	return t.category.has("economics", "economy", "macro") ||
		t.question.has(economicsPhrases...)
}

func isWeather(t text) bool {
	return t.category.has("weather", "climate") ||
		t.slug.has("highest temperature", "lowest temperature") ||
		t.question.has(weatherWords...)
}

func isPolitics(t text) bool {
	return t.category.has("politics", "elections", "geopolitics") ||
		t.question.has(politicsWords...)
}

var (
	sportsCategories = []string{
		"sports", "esports", "gaming", "mma", "boxing", "wrestling", "racing", "motorsport",
	}
	sportsSlugWords = []string{
		"esports", "valorant", "cs2", "tennis", "nba", "nfl", "mma", "ufc", "soccer",
		"football", "dota", "dota2", "cricket", "boxing", "rugby", "hockey", "nhl", "mlb",
		"baseball", "basketball", "ncaa", "cbb", "cwbb", "bbl", "overwatch", "fortnite",
		"pubg", "fifa", "f1", "motogp", "wwe", "aew", "pga", "lpga", "atp", "wta",
		"wimbledon", "olympics", "btts", "handicap", "spread",
	}
	sportsSlugPhrases = []string{
		"counter strike", "league of legends", "serie a", "la liga", "premier league",
		"bundesliga", "ligue 1", "champions league", "europa league", "rocket league",
		"call of duty", "rainbow six", "apex legends", "grand slam", "us open",
		"world cup", "super bowl", "stanley cup", "world series",
	}
	sportsQuestionPhrases = []string{
		"vs", "both teams", "total games", "map handicap", "home win", "away win",
		"score in", "o u",
	}

	socialCountPhrases = []string{
		"tweets from", "posts from", "number of tweets", "number of posts",
		"how many tweets", "how many posts",
	}
	socialEventPhrases = []string{
		"during", "state of the union", "sotu", "debate", "press conference", "speech",
		"interview",
	}

	cryptoTokens = []string{
		"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "xrp", "doge", "dogecoin",
		"ada", "avax", "matic", "chainlink", "aave",
	}

	tickers = []string{
		"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA", "NFLX", "AMD", "INTC",
		"PLTR", "DIS", "UBER", "COIN", "HOOD", "GME", "AMC", "PYPL", "SHOP", "SNAP",
		"PINS", "RBLX", "ABNB", "DASH", "RIVN", "LCID", "NIO", "WMT", "TGT", "COST", "PEP",
	}
	equityPhrases = []string{
		"earnings", "eps beat", "revenue beat", "quarterly results", "etf flows",
		"etf inflows", "etf outflows", "net inflows", "net outflows", "s p 500", "nasdaq",
		"dow jones", "close above", "close below", "close at",
	}

	economicsPhrases = []string{
		"fed", "fomc", "interest rate", "interest rates", "rate cut", "rate hike", "cpi",
		"inflation", "unemployment", "gdp", "jobs report", "nonfarm payrolls", "recession",
	}

	weatherWords = []string{
		"temperature", "rain", "rainfall", "snow", "snowfall", "precipitation",
		"hurricane", "tornado", "weather", "heatwave",
	}

	politicsWords = []string{
		"election", "elected", "president", "presidential", "senate", "congress",
		"governor", "mayor", "parliament", "minister", "nominee", "primary", "impeach",
		"referendum",
	}
)

// text holds the normalised fields predicates run against.
type text struct {
	category words
	slug     words
	question words
	tickers  tokenSet
}

func newText(in ClassifyInput) text {
	return text{
		category: normalize(in.Category),
		slug:     normalize(in.Slug),
		question: normalize(in.Question),
		tickers:  rawTokens(in.Question),
	}
}

// words is lower-cased text reduced to single-space separated alphanumeric
// tokens, padded with a space on each side.
type words string

func normalize(s string) words {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return words(" " + strings.Join(fields, " ") + " ")
}

// has matches whole tokens only: "eth" never matches "method".
func (w words) has(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(string(w), " "+p+" ") {
			return true
		}
	}
	return false
}

// tokenSet is case-sensitive, for tickers.
type tokenSet map[string]struct{}

func rawTokens(s string) tokenSet {
	set := tokenSet{}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[f] = struct{}{}
	}
	return set
}

func (s tokenSet) any(candidates ...string) bool {
	for _, c := range candidates {
		if _, ok := s[c]; ok {
			return true
		}
	}
	return false
}
