package news

import "strings"

// Source tier tables, kept separate for company and macro coverage.
// Tier 1 is premium financial press, tier 2 adds analysis and tech outlets,
// tier 3 is general coverage that is still reliable.

var companyTier1 = []string{
	"Bloomberg",
	"Reuters",
	"The Wall Street Journal",
	"CNBC",
	"Financial Times",
}

var companyTier2 = []string{
	"Seeking Alpha",
	"Barron's",
	"Forbes",
	"Business Insider",
	"Motley Fool",
	"Investor's Business Daily",
	"TheStreet",
	"TechCrunch",
	"The Verge",
	"Ars Technica",
	"Tom's Hardware",
	"AnandTech",
	"Wired",
}

var companyTier3 = []string{
	"Yahoo Finance",
	"MarketWatch",
	"CNET",
	"ZDNet",
	"VentureBeat",
	"Benzinga",
}

var macroTier1 = []string{
	"Bloomberg",
	"Reuters",
	"The Wall Street Journal",
	"Financial Times",
	"CNBC",
}

var macroTier2 = []string{
	"MarketWatch",
	"Barron's",
	"Forbes",
	"Business Insider",
	"The Economist",
}

var macroTier3 = []string{
	"BBC Business",
	"CNN Business",
	"Yahoo Finance",
	"Investing.com",
}

var excludedSources = []string{
	"reddit",
	"twitter",
	"facebook",
	"stocktwits",
	"4chan",
	"youtube comments",
}

var macroKeywords = []string{
	"stock market", "nasdaq", "dow jones", "s&p 500", "wall street",
	"federal reserve", "fed", "interest rate", "inflation", "cpi",
	"gdp", "economy", "recession", "unemployment",
	"china", "trade war", "tariff", "geopolitical", "war",
	"tech sector", "semiconductor", "ai sector", "tech stocks",
}

func containsAny(name string, list []string) bool {
	lower := strings.ToLower(name)
	for _, s := range list {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// CompanySourceTier returns 1..3 for trusted company-news sources, 0 otherwise.
func CompanySourceTier(source string) int {
	switch {
	case containsAny(source, companyTier1):
		return 1
	case containsAny(source, companyTier2):
		return 2
	case containsAny(source, companyTier3):
		return 3
	}
	return 0
}

// MacroSourceTier returns 1..3 for trusted macro-news sources, 0 otherwise.
func MacroSourceTier(source string) int {
	switch {
	case containsAny(source, macroTier1):
		return 1
	case containsAny(source, macroTier2):
		return 2
	case containsAny(source, macroTier3):
		return 3
	}
	return 0
}

// IsExcludedSource reports whether the source is on the blocklist of
// social and low-quality outlets.
func IsExcludedSource(source string) bool {
	return containsAny(source, excludedSources)
}

// CompanyKeywords builds the relevance vocabulary for one company. The
// extras cover products and executives the headline may name instead of
// the company itself.
func CompanyKeywords(name, symbol string, extras ...string) []string {
	keywords := []string{name, symbol}
	keywords = append(keywords, extras...)
	return keywords
}

// DefaultNvidiaExtras is the relevance vocabulary beyond name and ticker
// for the default tracked company.
var DefaultNvidiaExtras = []string{
	"Jensen Huang",
	"GeForce",
	"RTX",
	"CUDA",
	"AI chips",
	"GPU",
	"data center",
	"gaming graphics",
	"automotive",
	"Mellanox",
}
