package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

const geminiEndpointTmpl = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiSummarizer layers model-written narrative sections on top of the
// local ranking. Any request, transport, or parse failure falls back to the
// plain LocalRanker output with a warning; summarization never fails a run.
type GeminiSummarizer struct {
	apiKey string
	model  string
	client *http.Client
	local  *LocalRanker
	logger *slog.Logger
}

func NewGeminiSummarizer(apiKey, model string, timeout time.Duration, logger *slog.Logger) *GeminiSummarizer {
	return &GeminiSummarizer{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
		local:  NewLocalRanker(),
		logger: logger.With("component", "summary"),
	}
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, result *models.ScrapeResult) (*Summary, error) {
	s, err := g.local.Summarize(ctx, result)
	if err != nil {
		return nil, err
	}

	narrative, err := g.generate(ctx, result, s)
	if err != nil {
		g.logger.Warn("model summary unavailable, using local summary", "error", err)
		return s, nil
	}

	s.Source = "gemini"
	if narrative.MarketAnalysis != "" {
		s.MarketAnalysis = narrative.MarketAnalysis
	}
	if len(narrative.Insights) > 0 {
		s.Insights = narrative.Insights
	}
	s.Recommendations = narrative.Recommendations
	s.RiskFactors = narrative.RiskFactors
	return s, nil
}

type narrativeSections struct {
	Insights        []string `json:"insights"`
	MarketAnalysis  string   `json:"market_analysis"`
	Recommendations []string `json:"recommendations"`
	RiskFactors     []string `json:"risk_factors"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiSummarizer) generate(ctx context.Context, result *models.ScrapeResult, s *Summary) (*narrativeSections, error) {
	prompt, err := buildPrompt(result, s)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(geminiEndpointTmpl, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("model response has no candidates")
	}

	text := stripCodeFence(parsed.Candidates[0].Content.Parts[0].Text)
	var sections narrativeSections
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return &sections, nil
}

func buildPrompt(result *models.ScrapeResult, s *Summary) (string, error) {
	digest, err := json.Marshal(struct {
		Query       string          `json:"query"`
		TopProducts []RankedProduct `json:"top_products"`
		TopSellers  []RankedSeller  `json:"top_sellers"`
	}{result.Query, s.TopProducts, s.TopSellers})
	if err != nil {
		return "", err
	}

	return "You are a sourcing analyst. Given this marketplace crawl digest, " +
		"respond with a single JSON object containing the keys " +
		`"insights" (array of strings), "market_analysis" (string), ` +
		`"recommendations" (array of strings) and "risk_factors" (array of strings). ` +
		"Respond with JSON only, no prose.\n\n" + string(digest), nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i != -1 {
			text = text[:i]
		}
	}
	return strings.TrimSpace(text)
}
