package sentiment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"daily-alpha/internal/domain"
	"daily-alpha/internal/news"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/trace"
)

const (
	companyWeight = 0.6
	macroWeight   = 0.4
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// Analyzer scores a day's company and macro article sets with one LLM call
// per non-empty category and blends the results.
type Analyzer struct {
	client chatClient
	model  string
	name   string
	symbol string
	tracer trace.Tracer
}

func NewAnalyzer(apiKey, model, companyName, companySymbol string, tracer trace.Tracer) *Analyzer {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Analyzer{
		client: &openAIClient{client: client},
		model:  model,
		name:   companyName,
		symbol: companySymbol,
		tracer: tracer,
	}
}

// Analyze produces the day's sentiment snapshot. Both categories empty
// short-circuits to {0.0, Low} without any model call.
func (a *Analyzer) Analyze(ctx context.Context, company, macro []*domain.Article) (*domain.SentimentSnapshot, error) {
	ctx, span := a.tracer.Start(ctx, "sentiment.analyze")
	defer span.End()

	snap := &domain.SentimentSnapshot{
		CompanyConfidence: domain.ConfidenceLow,
		CompanyFactors:    "No company articles",
		MacroConfidence:   domain.ConfidenceLow,
		MacroFactors:      "No macro articles",
		CompanyArticles:   len(company),
		MacroArticles:     len(macro),
	}

	if len(company) == 0 && len(macro) == 0 {
		snap.CombinedConfidence = domain.ConfidenceLow
		return snap, nil
	}

	if len(company) > 0 {
		parsed, err := a.analyzeCategory(ctx,
			companySystemPrompt(a.name, a.symbol),
			news.FormatForAnalysis(a.name+" News Articles", company),
			len(company))
		if err != nil {
			return nil, fmt.Errorf("company analysis: %w", err)
		}
		snap.CompanyScore = parsed.OverallScore
		snap.CompanyConfidence = parsed.Confidence
		snap.CompanyFactors = parsed.KeyFactors
		snap.CompanyScores = parsed.ArticleScores
	}

	if len(macro) > 0 {
		parsed, err := a.analyzeCategory(ctx,
			macroSystemPrompt(a.name),
			news.FormatForAnalysis("Market News Articles", macro),
			len(macro))
		if err != nil {
			return nil, fmt.Errorf("macro analysis: %w", err)
		}
		snap.MacroScore = parsed.OverallScore
		snap.MacroConfidence = parsed.Confidence
		snap.MacroFactors = parsed.KeyFactors
		snap.MacroScores = parsed.ArticleScores
	}

	snap.CombinedScore = companyWeight*snap.CompanyScore + macroWeight*snap.MacroScore
	snap.CombinedConfidence = domain.CombineConfidence(snap.CompanyConfidence, snap.MacroConfidence)

	log.Printf("sentiment: company=%.2f macro=%.2f combined=%.2f (%s)",
		snap.CompanyScore, snap.MacroScore, snap.CombinedScore, snap.CombinedConfidence)
	return snap, nil
}

func (a *Analyzer) analyzeCategory(ctx context.Context, systemPrompt, articleBlock string, numArticles int) (ParsedAnalysis, error) {
	completion, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(articleBlock),
		},
	})
	if err != nil {
		return ParsedAnalysis{}, err
	}
	if len(completion.Choices) == 0 {
		return ParsedAnalysis{}, fmt.Errorf("empty completion")
	}
	return ParseAnalysis(completion.Choices[0].Message.Content, numArticles), nil
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
