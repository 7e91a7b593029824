// Package gateway talks to the external publishing platform. Calls carry no
// dedup key: uploading the same media or creating the same job twice yields
// two independent remote objects, so callers must check for an existing
// remote id before retrying.
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

type PlatformGateway interface {
	UploadMedia(ctx context.Context, accessToken string, media []byte, mimeType string) (string, error)
	CreateScheduledJob(ctx context.Context, accessToken string, job *ScheduledJob) (string, error)
}

type ScheduledJob struct {
	MediaURL  string    `json:"media_url"`
	Caption   string    `json:"caption"`
	AccountID string    `json:"account_id"`
	PublishAt time.Time `json:"publish_at"`
}

type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func NewPlatformGateway(cfg config.Config) PlatformGateway {
	return &gatewayClient{
		baseURL: cfg.Gateway.BaseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (g *gatewayClient) UploadMedia(ctx context.Context, accessToken string, media []byte, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/media", bytes.NewReader(media))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("error response from platform: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		MediaURL string `json:"media_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode media upload response: %w", err)
	}

	return result.MediaURL, nil
}

func (g *gatewayClient) CreateScheduledJob(ctx context.Context, accessToken string, job *ScheduledJob) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/jobs", bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to create scheduled job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("error response from platform: %s (status code: %d)", body, resp.StatusCode)
	}

	var result struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to decode job response: %w", err)
	}

	return result.JobID, nil
}
