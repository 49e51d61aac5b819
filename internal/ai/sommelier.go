package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CellarEntry is the slimmed-down inventory line handed to the model.
type CellarEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	Vintage  int    `json:"vintage"`
}

// LabelInfo is what a successful label scan yields.
type LabelInfo struct {
	Name     string `json:"name"`
	Producer string `json:"producer"`
	Vintage  int    `json:"vintage"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Grapes   string `json:"grapes"`
}

// Advisor produces cellar advice. Handlers depend on this interface so
// tests can substitute a fake.
type Advisor interface {
	Advise(ctx context.Context, cellar []CellarEntry, question string) (string, error)
}

// LabelScanner reads a wine label image.
type LabelScanner interface {
	ScanLabel(ctx context.Context, image []byte, mimeType string) (*LabelInfo, error)
}

// Sommelier implements Advisor and LabelScanner on top of a text
// generator (Gemini in production).
type Sommelier struct {
	client interface {
		GenerateText(ctx context.Context, prompt string) (string, error)
		GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	}
}

func NewSommelier(client *GeminiClient) *Sommelier { return &Sommelier{client: client} }

// Advise asks for a cellar review, or answers a free-form question
// grounded in the inventory. The answer is markdown, surfaced as-is.
func (s *Sommelier) Advise(ctx context.Context, cellar []CellarEntry, question string) (string, error) {
	summary, err := json.Marshal(cellar)
	if err != nil {
		return "", err
	}
	var prompt string
	if strings.TrimSpace(question) != "" {
		prompt = fmt.Sprintf(`You are a personal expert sommelier. Here is the user's current wine cellar inventory (JSON):
%s

The user asks: %q

Answer precisely and helpfully, grounding yourself in the cellar contents when relevant. If the question is not directly about the cellar, answer with general sommelier expertise but tie it back to a compatible bottle from the inventory when one exists.

Format: Markdown.`, summary, question)
	} else {
		prompt = fmt.Sprintf(`You are a personal expert sommelier. Analyze the following wine cellar (JSON):
%s

Give a short, sharp review of the cellar:
1. Analyze the balance (red vs white vs others).
2. Identify the strengths (regions, vintages).
3. Give 3 concrete purchase recommendations to diversify or complete the cellar, explaining why.
4. Be elegant, encouraging and professional.

Format: Markdown (use headings and bullet lists).`, summary)
	}
	return s.client.GenerateText(ctx, prompt)
}

const labelPrompt = `Read this wine label and return ONLY a JSON object with the fields:
{"name": string, "producer": string, "vintage": number, "type": "RED"|"WHITE"|"SPARKLING"|"ROSE"|"OTHER", "region": string, "country": string, "grapes": string}
Use empty strings for fields you cannot read and 0 for an unknown vintage. No prose, no markdown.`

// ScanLabel extracts structured wine details from a label photo. The
// model tends to wrap JSON in code fences; those are stripped before
// decoding. A response that still fails to decode is an error for the
// caller to surface — never retried.
func (s *Sommelier) ScanLabel(ctx context.Context, image []byte, mimeType string) (*LabelInfo, error) {
	raw, err := s.client.GenerateWithImage(ctx, labelPrompt, image, mimeType)
	if err != nil {
		return nil, err
	}
	cleaned := StripCodeFences(raw)
	var info LabelInfo
	if err := json.Unmarshal([]byte(cleaned), &info); err != nil {
		return nil, fmt.Errorf("unreadable label response: %w", err)
	}
	if !validLabelType(info.Type) {
		info.Type = "OTHER"
	}
	return &info, nil
}

// StripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func validLabelType(t string) bool {
	switch t {
	case "RED", "WHITE", "SPARKLING", "ROSE", "OTHER":
		return true
	}
	return false
}
