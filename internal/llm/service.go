package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/go-resty/resty/v2"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL    string
	Model      string
	TitleModel string
	// Timeout bounds the title request. Streaming requests are only bounded
	// by the caller's context.
	Timeout time.Duration
}

type Service struct {
	http       *resty.Client
	baseURL    string
	model      string
	titleModel string
	timeout    time.Duration
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	titleModel := cfg.TitleModel
	if titleModel == "" {
		titleModel = cfg.Model
	}
	return &Service{
		http:       resty.New(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		titleModel: titleModel,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

func (s *Service) Model() string {
	return s.model
}

func (s *Service) endpoint(path string) string {
	return s.baseURL + path
}

func (s *Service) request(ctx context.Context, apiKey string) *resty.Request {
	req := s.http.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		req.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return req
}

// StreamCompletion posts the transcript with stream enabled and returns the
// raw event-stream body. The caller must close it. Transport failures and
// non-2xx responses are returned as errors; nothing is retried.
func (s *Service) StreamCompletion(ctx context.Context, apiKey string, messages []models.Message) (io.ReadCloser, error) {
	body := goopenai.ChatCompletionRequest{
		Model:    s.model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	}

	resp, err := s.request(ctx, apiKey).
		SetHeader("Accept", "text/event-stream").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(s.endpoint("/chat/completions"))
	if err != nil {
		return nil, fmt.Errorf("failed to request completion: %w", err)
	}

	raw := resp.RawBody()
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), raw)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to request completion: empty response body")
	}

	s.logger.Debug("completion stream opened",
		zap.String("model", s.model),
		zap.Int("messages", len(messages)),
		zap.Int("status", resp.StatusCode()))
	return raw, nil
}

// GenerateTitle asks the title model for a short title summarising
// messages and returns its answer with surrounding whitespace removed.
func (s *Service) GenerateTitle(ctx context.Context, apiKey string, messages []models.Message) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("failed to generate title: no API key configured")
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(s.baseURL),
		openai.WithModel(s.titleModel),
		openai.WithHTTPClient(s.http.GetClient()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to initialize title model: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := llm.GenerateContent(ctx, titleConversation(messages))
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("failed to generate title: no choices returned")
	}

	title := strings.TrimSpace(resp.Choices[0].Content)
	s.logger.Debug("generated title", zap.String("model", s.titleModel), zap.String("title", title))
	return title, nil
}

// titleConversation puts the title instruction first and replays every
// message of the transcript as a user turn.
func titleConversation(messages []models.Message) []llms.MessageContent {
	out := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, titlePrompt)}
	for _, msg := range messages {
		content := llms.MessageContent{Role: llms.ChatMessageTypeHuman}
		if msg.Content.IsParts() {
			for _, p := range msg.Content.Parts() {
				switch {
				case p.Type == models.PartText:
					content.Parts = append(content.Parts, llms.TextContent{Text: p.Text})
				case p.Type == models.PartImageURL && p.ImageURL != nil:
					content.Parts = append(content.Parts, llms.ImageURLContent{URL: p.ImageURL.URL})
				}
			}
		} else {
			content.Parts = []llms.ContentPart{llms.TextContent{Text: msg.Content.String()}}
		}
		if len(content.Parts) > 0 {
			out = append(out, content)
		}
	}
	return out
}

func toOpenAIMessages(messages []models.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := goopenai.ChatCompletionMessage{Role: string(msg.Role)}
		if !msg.Content.IsParts() {
			m.Content = msg.Content.String()
			out = append(out, m)
			continue
		}
		for _, p := range msg.Content.Parts() {
			switch {
			case p.Type == models.PartText:
				m.MultiContent = append(m.MultiContent, goopenai.ChatMessagePart{
					Type: goopenai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			case p.Type == models.PartImageURL && p.ImageURL != nil:
				m.MultiContent = append(m.MultiContent, goopenai.ChatMessagePart{
					Type:     goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{URL: p.ImageURL.URL},
				})
			}
		}
		out = append(out, m)
	}
	return out
}
