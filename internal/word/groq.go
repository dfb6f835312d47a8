package word

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sudooom.spy/internal/game"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"

	maxErrorBody = 512
)

const pairPrompt = `Provide two commonly used everyday nouns for the word game Spyfall. The words should be related but not identical or subtypes of each other, and should not be interchangeable.

Good examples:
- car, van
- guitar, violin
- coffee, tea
- computer, television

Bad examples:
- couch, sofa
- chair, stool
- chef, cook
- hammer, mallet
- bookshelf, bookcase

Return only the two words, separated by a comma and in lowercase. Do not provide reasoning.`

// GroqConfig Groq 配置
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GroqSupplier 通过 OpenAI 兼容的 chat completions 接口生成词对
type GroqSupplier struct {
	cfg    GroqConfig
	client *http.Client
	logger *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewGroqSupplier 创建 Groq 词库，BaseURL 和 Model 为空时使用默认值
func NewGroqSupplier(cfg GroqConfig) (*GroqSupplier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &GroqSupplier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "GroqSupplier"),
	}, nil
}

// FetchWordPair 实现 game.WordSupplier
func (s *GroqSupplier) FetchWordPair(ctx context.Context) (game.WordPair, error) {
	body, err := json.Marshal(chatRequest{
		Model:    s.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: pairPrompt}},
	})
	if err != nil {
		return game.WordPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return game.WordPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return game.WordPair{}, fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return game.WordPair{}, fmt.Errorf("groq: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return game.WordPair{}, fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return game.WordPair{}, fmt.Errorf("groq: no choices: %w", ErrMalformedPair)
	}

	content := out.Choices[0].Message.Content
	pair, err := ParsePair(content)
	if err != nil {
		s.logger.Warn("Unusable word pair from model", "content", content)
		return game.WordPair{}, fmt.Errorf("groq: %q: %w", content, err)
	}

	s.logger.Debug("Fetched word pair", "model", s.cfg.Model, "cost", time.Since(start))
	return pair, nil
}
