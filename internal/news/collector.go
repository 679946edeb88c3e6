package news

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

// searchBreadth is how many raw hits each query requests; filtering cuts
// the set down before the MaxArticles cap applies.
const searchBreadth = 20

// NewsSearcher is the search backend the collector consumes.
type NewsSearcher interface {
	SearchNews(ctx context.Context, query string, num int) ([]provider.NewsResult, error)
}

// Collector turns raw news searches into filtered, ranked, typed articles
// for one tracked company.
type Collector struct {
	searcher        NewsSearcher
	companyName     string
	companySymbol   string
	companyKeywords []string
	maxArticles     int
	tracer          trace.Tracer
}

func NewCollector(searcher NewsSearcher, name, symbol string, keywords []string, maxArticles int, tracer trace.Tracer) *Collector {
	if maxArticles <= 0 {
		maxArticles = 3
	}
	if len(keywords) == 0 {
		keywords = CompanyKeywords(name, symbol)
	}
	return &Collector{
		searcher:        searcher,
		companyName:     name,
		companySymbol:   symbol,
		companyKeywords: keywords,
		maxArticles:     maxArticles,
		tracer:          tracer,
	}
}

// CollectCompany searches company news for the date. Search failures and
// empty result sets both degrade to an empty slice.
func (c *Collector) CollectCompany(ctx context.Context, date time.Time) []*domain.Article {
	_, span := c.tracer.Start(ctx, "news.collect-company")
	defer span.End()

	query := fmt.Sprintf("%s OR %s stock news %s",
		c.companyName, c.companySymbol, date.Format(domain.DateLayout))

	raw, err := c.searcher.SearchNews(ctx, query, searchBreadth)
	if err != nil {
		log.Printf("company news search failed: %v", err)
		return nil
	}

	filtered := c.filterCompany(raw, date)
	return rankAndLimit(filtered, c.maxArticles)
}

// CollectMacro searches market-wide news for the date, restricted to the
// premium financial sites.
func (c *Collector) CollectMacro(ctx context.Context, date time.Time) []*domain.Article {
	_, span := c.tracer.Start(ctx, "news.collect-macro")
	defer span.End()

	query := fmt.Sprintf("(site:bloomberg.com OR site:reuters.com OR site:cnbc.com OR site:wsj.com OR site:marketwatch.com OR site:barrons.com) stock market NASDAQ %s",
		date.Format(domain.DateLayout))

	raw, err := c.searcher.SearchNews(ctx, query, searchBreadth)
	if err != nil {
		log.Printf("macro news search failed: %v", err)
		return nil
	}

	filtered := c.filterMacro(raw, date)
	return rankAndLimit(filtered, c.maxArticles)
}

func (c *Collector) filterCompany(raw []provider.NewsResult, date time.Time) []*domain.Article {
	var out []*domain.Article
	for _, r := range raw {
		if r.Title == "" || r.Source == "" || r.Link == "" {
			continue
		}
		if IsExcludedSource(r.Source) {
			continue
		}
		tier := CompanySourceTier(r.Source)
		if tier == 0 {
			continue
		}
		if !c.isCompanyRelevant(r.Title, r.Snippet) {
			continue
		}
		out = append(out, &domain.Article{
			Date:    domain.NormalizeDate(date),
			URL:     r.Link,
			Source:  r.Source,
			Title:   r.Title,
			Summary: r.Snippet,
			Type:    domain.ArticleTypeCompany,
			Tier:    tier,
		})
	}
	return out
}

func (c *Collector) filterMacro(raw []provider.NewsResult, date time.Time) []*domain.Article {
	var out []*domain.Article
	for _, r := range raw {
		if r.Title == "" || r.Source == "" || r.Link == "" {
			continue
		}
		if IsExcludedSource(r.Source) {
			continue
		}
		tier := MacroSourceTier(r.Source)
		if tier == 0 {
			continue
		}
		if !isMacroRelevant(r.Title, r.Snippet) {
			continue
		}
		out = append(out, &domain.Article{
			Date:    domain.NormalizeDate(date),
			URL:     r.Link,
			Source:  r.Source,
			Title:   r.Title,
			Summary: r.Snippet,
			Type:    domain.ArticleTypeMacro,
			Tier:    tier,
		})
	}
	return out
}

func (c *Collector) isCompanyRelevant(title, snippet string) bool {
	text := strings.ToLower(title + " " + snippet)
	for _, kw := range c.companyKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isMacroRelevant(title, snippet string) bool {
	text := strings.ToLower(title + " " + snippet)
	for _, kw := range macroKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// rankAndLimit sorts by tier (lower is better), keeping the search engine's
// order within a tier, and caps the result.
func rankAndLimit(articles []*domain.Article, max int) []*domain.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Tier < articles[j].Tier
	})
	if len(articles) > max {
		articles = articles[:max]
	}
	return articles
}

// FormatForAnalysis renders the article block one analysis call consumes.
func FormatForAnalysis(heading string, articles []*domain.Article) string {
	if len(articles) == 0 {
		return "No articles found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d articles):\n\n", heading, len(articles))
	for i, a := range articles {
		fmt.Fprintf(&b, "Article %d:\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", a.Source)
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
		fmt.Fprintf(&b, "Content: %s\n", a.Summary)
		fmt.Fprintf(&b, "URL: %s\n\n", a.URL)
	}
	return b.String()
}
