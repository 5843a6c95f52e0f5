// internal/api/client.go
//
// Stateless HTTP client for the template service. Each method is a single
// request/response pair; nothing here retries, caches, or holds session
// state. Non-2xx responses surface the response body as the error detail.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/draftforge/stencil/internal/rules"
)

// DefaultBaseURL matches the development backend.
const DefaultBaseURL = "http://127.0.0.1:8000"

const defaultTimeout = 120 * time.Second

// Extraction modes accepted by the analyze endpoint.
const (
	ModeRules  = "rules"
	ModeLLM    = "llm"
	ModeHybrid = "hybrid"
)

// Profile is a named, persisted RuleSet snapshot.
type Profile struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Rules     rules.RuleSet `json:"rules"`
	CreatedAt int64         `json:"created_at"`
}

// HistoryEntry records one past analysis. Written by the backend as a side
// effect of a successful analyze call; read-only here.
type HistoryEntry struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	Rules     rules.RuleSet `json:"rules"`
	CreatedAt int64         `json:"created_at"`
}

// TemplateRecord records one past generation and the artifact it produced.
type TemplateRecord struct {
	ID         string        `json:"id"`
	TemplateID string        `json:"template_id"`
	Rules      rules.RuleSet `json:"rules"`
	CreatedAt  int64         `json:"created_at"`
}

// Client talks to the template service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option customizes Client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{
		baseURL: base,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(KindPersistence, resp)
	}
	return nil
}

// Analyze uploads a requirements document and returns the extracted rule
// set. mode selects the extraction strategy; empty means ModeRules.
func (c *Client) Analyze(ctx context.Context, filename string, content io.Reader, mode string) (rules.RuleSet, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: err.Error()}
	}
	if _, err := io.Copy(part, content); err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: err.Error()}
	}
	if err := writer.Close(); err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: err.Error()}
	}

	target := c.baseURL + "/api/analyze"
	if mode != "" && mode != ModeRules {
		target += "?mode=" + url.QueryEscape(mode)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rules.RuleSet{}, responseError(KindAnalysis, resp)
	}

	var out rules.RuleSet
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return rules.RuleSet{}, &Error{Kind: KindAnalysis, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return out, nil
}

// Generate submits the full rule set and returns the template artifact id.
// Not safe to retry blindly: each call records a new template on the backend.
func (c *Client) Generate(ctx context.Context, r rules.RuleSet) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", &Error{Kind: KindGeneration, Detail: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindGeneration, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &Error{Kind: KindGeneration, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", responseError(KindGeneration, resp)
	}

	var out struct {
		TemplateID string `json:"template_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Kind: KindGeneration, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return out.TemplateID, nil
}

// DownloadURL returns the artifact reference for a generated template. The
// reference is not introspected or validated here.
func (c *Client) DownloadURL(templateID string) string {
	return c.baseURL + "/api/download/" + url.PathEscape(templateID)
}

// FetchArtifact streams the generated artifact into dest.
func (c *Client) FetchArtifact(ctx context.Context, templateID string, dest io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(templateID), nil)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(KindPersistence, resp)
	}
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	return nil
}

// ListProfiles fetches the saved rule-set profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	var out struct {
		Items []Profile `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/profiles", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateProfile saves a named snapshot of the given rule set. The name is
// expected to be validated (non-empty after trimming) by the caller.
func (c *Client) CreateProfile(ctx context.Context, name string, r rules.RuleSet) (Profile, error) {
	body, err := json.Marshal(map[string]any{"name": name, "rules": r})
	if err != nil {
		return Profile{}, &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/profiles", bytes.NewReader(body))
	if err != nil {
		return Profile{}, &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Profile{}, &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Profile{}, responseError(KindPersistence, resp)
	}

	var out Profile
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Profile{}, &Error{Kind: KindPersistence, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return out, nil
}

// DeleteProfile removes a saved profile.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/profiles/"+url.PathEscape(id), nil)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(KindPersistence, resp)
	}
	return nil
}

// ListHistory fetches the recorded analyses, newest first.
func (c *Client) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	var out struct {
		Items []HistoryEntry `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/history", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListTemplates fetches the recorded generations, newest first.
func (c *Client) ListTemplates(ctx context.Context) ([]TemplateRecord, error) {
	var out struct {
		Items []TemplateRecord `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/templates", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &Error{Kind: KindPersistence, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(KindPersistence, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindPersistence, Detail: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func responseError(kind Kind, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = resp.Status
	}
	return &Error{Kind: kind, Status: resp.StatusCode, Detail: detail}
}
