// Package translate is a client for LibreTranslate-compatible translation APIs.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

var supportedLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "pl", "ru", "zh", "ja", "ko", "ar", "hi", "tr",
}

func SupportedLanguages() []string {
	return slices.Clone(supportedLanguages)
}

func IsSupported(lang string) bool {
	return slices.Contains(supportedLanguages, lang)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Translate translates texts into target. An empty source lets the server
// detect the language. Results keep the input order.
func (c *Client) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if !IsSupported(target) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, target)
	}
	if source != "" && !IsSupported(source) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, source)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if source == "" {
		source = "auto"
	}

	body := map[string]any{
		"q":      texts,
		"source": source,
		"target": target,
		"format": "text",
	}
	if c.apiKey != "" {
		body["api_key"] = c.apiKey
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal translate request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build translate request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read translate response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("translate status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("translate status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		TranslatedText []string `json:"translatedText"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse translate json failed: %w", err)
	}
	if len(parsed.TranslatedText) != len(texts) {
		return nil, fmt.Errorf("translate returned %d texts for %d inputs", len(parsed.TranslatedText), len(texts))
	}
	return parsed.TranslatedText, nil
}
