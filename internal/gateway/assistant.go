package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	config "github.com/relayne/postdeck/configs"
)

// CaptionAssistant is the AI text service behind the caption-assist action.
// Prompt construction and generation live entirely on the other side of this
// interface; the core only meters the call through the quota gate.
type CaptionAssistant interface {
	SuggestCaption(ctx context.Context, draft, tone string) (string, error)
}

type assistantClient struct {
	baseURL string
	http    *http.Client
}

func NewCaptionAssistant(cfg config.Config) CaptionAssistant {
	return &assistantClient{
		baseURL: cfg.Gateway.AssistantURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *assistantClient) SuggestCaption(ctx context.Context, draft, tone string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"draft": draft,
		"tone":  tone,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/captions", bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to reach caption assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("error response from assistant: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		Caption string `json:"caption"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode assistant response: %w", err)
	}

	return result.Caption, nil
}
