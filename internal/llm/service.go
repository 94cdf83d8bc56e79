package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
	ProviderNone   Provider = "none"
)

var ErrNotConfigured = fmt.Errorf("reasoning service not configured")

// Service is the client for the external reasoning service. It is treated
// as unreliable: every call carries a timeout and a bounded retry budget,
// and callers fall back to their non-LLM signals when it is absent.
type Service struct {
	provider       Provider
	apiKey         string
	model          string
	embeddingModel string
	httpClient     *http.Client
	maxRetries     int
	retryBackoff   time.Duration
}

func NewService(provider, apiKey, model, embeddingModel string) *Service {
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	return &Service{
		provider:       Provider(provider),
		apiKey:         apiKey,
		model:          model,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries:   3,
		retryBackoff: 2 * time.Second,
	}
}

func (s *Service) Configured() bool {
	return s != nil && s.provider != ProviderNone && s.provider != "" && s.apiKey != ""
}

func (s *Service) chatURL() string {
	if s.provider == ProviderGroq {
		return "https://api.groq.com/openai/v1/chat/completions"
	}
	return "https://api.openai.com/v1/chat/completions"
}

// Generate sends a prompt and returns the raw completion text. Used for
// match re-ranking and fact extraction prompts.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	reqBody := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a recruiting assistant. Return only valid JSON.",
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": 0.1,
		"response_format": map[string]string{
			"type": "json_object",
		},
	}

	var content string
	err := s.withRetries(ctx, "chat", func() error {
		body, err := s.post(ctx, s.chatURL(), reqBody)
		if err != nil {
			return err
		}

		var result struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return err
		}
		if result.Error.Message != "" {
			return fmt.Errorf("provider error: %s", result.Error.Message)
		}
		if len(result.Choices) == 0 {
			return fmt.Errorf("empty completion")
		}
		content = result.Choices[0].Message.Content
		return nil
	})
	return content, err
}

// Embed returns a fixed-length vector for the given text.
// Embeddings always go through the OpenAI endpoint: Groq has no embeddings
// API, so in a Groq setup the embedding key is still an OpenAI key.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	reqBody := map[string]interface{}{
		"input": text,
		"model": s.embeddingModel,
	}

	var embedding []float32
	err := s.withRetries(ctx, "embeddings", func() error {
		body, err := s.post(ctx, "https://api.openai.com/v1/embeddings", reqBody)
		if err != nil {
			return err
		}

		var result struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return err
		}
		if len(result.Data) == 0 {
			return fmt.Errorf("no embedding returned")
		}
		embedding = result.Data[0].Embedding
		return nil
	})
	return embedding, err
}

// EmbeddingModel reports the model tag stored alongside generated vectors.
func (s *Service) EmbeddingModel() string {
	return s.embeddingModel
}

func (s *Service) post(ctx context.Context, url string, reqBody interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %d - %.200s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (s *Service) withRetries(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[LLM] Retrying %s (attempt %d/%d): %v", op, attempt, s.maxRetries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryBackoff * time.Duration(attempt)):
			}
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", op, s.maxRetries, err)
}
