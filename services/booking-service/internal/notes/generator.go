// Package notes turns a raw consultation transcript into a structured
// SOAP note, plus an optional follow-up suggestion, via an external
// generation service.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vetsync/vetsync/services/booking-service/internal/model"
)

type Generator interface {
	Generate(ctx context.Context, transcript string) (model.SoapNote, *model.FollowUp, error)
	ProviderID() string
}

// WebhookGenerator posts the transcript to an external generation
// endpoint and expects {"note": {...}, "follow_up": {...}} back, the
// follow_up key optional.
type WebhookGenerator struct {
	url   string
	token string
	http  *http.Client
}

func NewWebhookGenerator(url string, token string) *WebhookGenerator {
	return &WebhookGenerator{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *WebhookGenerator) ProviderID() string {
	return "notes-webhook"
}

func (g *WebhookGenerator) Generate(ctx context.Context, transcript string) (model.SoapNote, *model.FollowUp, error) {
	if g.url == "" {
		return model.SoapNote{}, nil, errors.New("notes webhook url not configured")
	}
	raw, err := json.Marshal(map[string]string{"transcript": transcript})
	if err != nil {
		return model.SoapNote{}, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(raw))
	if err != nil {
		return model.SoapNote{}, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return model.SoapNote{}, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.SoapNote{}, nil, fmt.Errorf("notes webhook returned status %d", resp.StatusCode)
	}

	var out struct {
		Note     model.SoapNote  `json:"note"`
		FollowUp *model.FollowUp `json:"follow_up"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.SoapNote{}, nil, err
	}
	return out.Note, out.FollowUp, nil
}

// StaticGenerator files the transcript verbatim under Subjective so the
// attach flow still works when no generation endpoint is configured.
type StaticGenerator struct{}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

func (g *StaticGenerator) ProviderID() string {
	return "notes-static"
}

func (g *StaticGenerator) Generate(_ context.Context, transcript string) (model.SoapNote, *model.FollowUp, error) {
	return model.SoapNote{
		Subjective: strings.TrimSpace(transcript),
		Plan:       "Review transcript and complete note manually.",
	}, nil, nil
}
