package sentiment

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"daily-alpha/internal/domain"
)

// ParsedAnalysis is the structured form of one model response.
type ParsedAnalysis struct {
	OverallScore  float64
	Confidence    domain.Confidence
	KeyFactors    string
	ArticleScores []domain.ArticleScore
	Raw           string
}

var overallScorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)OVERALL SENTIMENT:\s*(-?\d+\.?\d*)`),
	regexp.MustCompile(`(?i)Overall:\s*(-?\d+\.?\d*)`),
	regexp.MustCompile(`(?i)overall score.*?(-?\d+\.?\d*)`),
	regexp.MustCompile(`(?i)weighted average.*?(-?\d+\.?\d*)`),
}

var keyFactorsPattern = regexp.MustCompile(`(?is)KEY FACTORS?:\s*(.+?)(?:\n\n|\z)`)

var articleScorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)Article \d+.*?[Ss]core:\s*(-?\d+\.?\d*)`),
	regexp.MustCompile(`(?s)[Ss]entiment.*?:\s*(-?\d+\.?\d*)`),
}

// ParseAnalysis extracts the labeled fields from a model response. Parsing
// is best-effort: an unrecoverable score degrades to 0.0 with a warning,
// never an error.
func ParseAnalysis(text string, numArticles int) ParsedAnalysis {
	return ParsedAnalysis{
		OverallScore:  extractOverallScore(text),
		Confidence:    extractConfidence(text),
		KeyFactors:    extractKeyFactors(text),
		ArticleScores: extractArticleScores(text, numArticles),
		Raw:           text,
	}
}

func extractOverallScore(text string) float64 {
	for _, pattern := range overallScorePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			score, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return clampScore(score)
		}
	}
	log.Printf("could not extract overall sentiment score, defaulting to 0")
	return 0.0
}

func extractConfidence(text string) domain.Confidence {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "confidence: high") || strings.Contains(lower, "high confidence"):
		return domain.ConfidenceHigh
	case strings.Contains(lower, "confidence: medium") || strings.Contains(lower, "medium confidence"):
		return domain.ConfidenceMedium
	case strings.Contains(lower, "confidence: low") || strings.Contains(lower, "low confidence"):
		return domain.ConfidenceLow
	}
	return domain.ConfidenceMedium
}

func extractKeyFactors(text string) string {
	if m := keyFactorsPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

func extractArticleScores(text string, numArticles int) []domain.ArticleScore {
	scores := make([]domain.ArticleScore, 0, numArticles)
	for i := 1; i <= numArticles; i++ {
		sectionPattern := regexp.MustCompile(
			fmt.Sprintf(`(?is)Article %d.*?(?:Article %d|OVERALL|\z)`, i, i+1))
		score := 0.0
		if section := sectionPattern.FindString(text); section != "" {
			for _, pattern := range articleScorePatterns {
				if m := pattern.FindStringSubmatch(section); m != nil {
					if v, err := strconv.ParseFloat(m[1], 64); err == nil {
						score = v
					}
					break
				}
			}
		}
		scores = append(scores, domain.ArticleScore{Index: i, Score: score})
	}
	return scores
}

func clampScore(v float64) float64 {
	if v < domain.SentimentMin {
		return domain.SentimentMin
	}
	if v > domain.SentimentMax {
		return domain.SentimentMax
	}
	return v
}
