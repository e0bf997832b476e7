package external

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"moodweather/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentError    = "error"
)

// SentimentResult analysis of a note plus the mood tags it suggests
type SentimentResult struct {
	Sentiment       string   `json:"sentiment"`
	Score           float64  `json:"score"`
	Magnitude       float64  `json:"magnitude"`
	EmojisSuggested []string `json:"emojis_suggested"`
}

// ClassifySentiment maps score [-1, 1] and magnitude to a label and mood tags
func ClassifySentiment(score, magnitude float64) (string, []string) {
	switch {
	case score > 0.25:
		if magnitude > 0.6 {
			return SentimentPositive, []string{domain.EmojiSunny, domain.EmojiPartly}
		}
		return SentimentPositive, []string{domain.EmojiSunny}
	case score < -0.25:
		if magnitude > 0.6 {
			return SentimentNegative, []string{domain.EmojiRainy, domain.EmojiStormy}
		}
		return SentimentNegative, []string{domain.EmojiRainy}
	default:
		if magnitude > 0.5 {
			return SentimentNeutral, []string{domain.EmojiCloudy, domain.EmojiPartly}
		}
		return SentimentNeutral, []string{domain.EmojiCloudy}
	}
}

type analyzeSentimentRequest struct {
	Document struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"document"`
	EncodingType string `json:"encodingType"`
}

type analyzeSentimentResponse struct {
	DocumentSentiment struct {
		Score     float64 `json:"score"`
		Magnitude float64 `json:"magnitude"`
	} `json:"documentSentiment"`
}

// SentimentClient Cloud Natural Language analyzeSentiment over REST
type SentimentClient struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

func NewSentimentClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *SentimentClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SentimentClient{
		httpClient: client,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Configured true when an API key is set; otherwise Analyze answers neutral
func (c *SentimentClient) Configured() bool {
	return c.apiKey != ""
}

// Analyze never fails: an unconfigured client answers neutral/cloudy, an upstream
// failure answers the "error" label with cloudy.
func (c *SentimentClient) Analyze(ctx context.Context, text string) *SentimentResult {
	if c.apiKey == "" {
		c.logger.Debug("Sentiment API key not set, using neutral response")
		return &SentimentResult{Sentiment: SentimentNeutral, EmojisSuggested: []string{domain.EmojiCloudy}}
	}

	score, magnitude, err := c.analyze(ctx, text)
	if err != nil {
		c.logger.Error("Sentiment analysis failed", zap.Error(err))
		return &SentimentResult{Sentiment: SentimentError, EmojisSuggested: []string{domain.EmojiCloudy}}
	}

	label, emojis := ClassifySentiment(score, magnitude)
	return &SentimentResult{
		Sentiment:       label,
		Score:           score,
		Magnitude:       magnitude,
		EmojisSuggested: emojis,
	}
}

func (c *SentimentClient) analyze(ctx context.Context, text string) (float64, float64, error) {
	var body analyzeSentimentRequest
	body.Document.Type = "PLAIN_TEXT"
	body.Document.Content = text
	body.EncodingType = "UTF8"

	var payload analyzeSentimentResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&payload).
		Post("/documents:analyzeSentiment")
	if err != nil {
		if isTimeout(err) {
			return 0, 0, fmt.Errorf("%w: sentiment analysis", ErrUpstreamTimeout)
		}
		return 0, 0, fmt.Errorf("failed to call sentiment API: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, 0, &UpstreamError{Service: "sentiment", StatusCode: resp.StatusCode()}
	}
	return payload.DocumentSentiment.Score, payload.DocumentSentiment.Magnitude, nil
}
