package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const contentTypeJSONAPI = "application/vnd.api+json"

// ErrorObject is a JSON:API error.
type ErrorObject struct {
	Status string            `json:"status"`
	Code   string            `json:"code"`
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Source map[string]string `json:"source,omitempty"`
}

// Pointer returns the attribute the error refers to, without the
// JSON:API prefix.
func (e ErrorObject) Pointer() string {
	p := e.Source["pointer"]
	return strings.TrimPrefix(p, "/data/attributes/state/job/")
}

// APIError is a non-2xx reply. Wizard is set when the service returned the
// session state alongside the errors.
type APIError struct {
	StatusCode int
	Errors     []ErrorObject
	Wizard     *Result
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("wizard service returned %d", e.StatusCode)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, o := range e.Errors {
		if o.Detail != "" {
			parts = append(parts, o.Detail)
		} else {
			parts = append(parts, o.Title)
		}
	}
	return strings.Join(parts, "; ")
}

// Code returns the first error code, if any.
func (e *APIError) Code() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

type resource[T any] struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes T      `json:"attributes"`
}

type errorDocument struct {
	Errors []ErrorObject `json:"errors"`
	Meta   struct {
		Wizard *Result `json:"wizard"`
	} `json:"meta"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", contentTypeJSONAPI)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var doc errorDocument
		if err := json.Unmarshal(raw, &doc); err == nil {
			apiErr.Errors = doc.Errors
			apiErr.Wizard = doc.Meta.Wizard
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) result(ctx context.Context, method, path string, body any, want int) (*Result, error) {
	var doc struct {
		Data resource[Result] `json:"data"`
	}
	if err := c.do(ctx, method, path, body, want, &doc); err != nil {
		return nil, err
	}
	return &doc.Data.Attributes, nil
}

func wizardPath(id string, op ...string) string {
	p := "/api/v1/wizards/" + url.PathEscape(id)
	if len(op) > 0 {
		p += "/" + op[0]
	}
	return p
}

// Create opens a session. A non-empty jobID opens it on an existing job.
func (c *Client) Create(ctx context.Context, jobID string) (*Result, error) {
	var body any
	if jobID != "" {
		body = map[string]string{"job_id": jobID}
	}
	return c.result(ctx, http.MethodPost, "/api/v1/wizards", body, http.StatusCreated)
}

func (c *Client) Get(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodGet, wizardPath(id), nil, http.StatusOK)
}

// Apply sends actions as one batch. They are applied in order and the
// first rejected one stops the batch.
func (c *Client) Apply(ctx context.Context, id string, actions ...Action) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "actions"), map[string]any{"actions": actions}, http.StatusOK)
}

func (c *Client) Next(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "next"), nil, http.StatusOK)
}

func (c *Client) Back(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "back"), nil, http.StatusOK)
}

func (c *Client) Jump(ctx context.Context, id string, step int) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "jump"), map[string]int{"step": step}, http.StatusOK)
}

func (c *Client) Submit(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "submit"), nil, http.StatusOK)
}

func (c *Client) Cancel(ctx context.Context, id string) (*Result, error) {
	return c.result(ctx, http.MethodPost, wizardPath(id, "cancel"), nil, http.StatusOK)
}

// Fields returns the compatibility set of pattern, optionally narrowed to
// one field type.
func (c *Client) Fields(ctx context.Context, pattern, fieldType string) ([]Field, error) {
	q := url.Values{"pattern": {pattern}}
	if fieldType != "" {
		q.Set("type", fieldType)
	}
	var doc struct {
		Data []resource[Field] `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/fields?"+q.Encode(), nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}
	out := make([]Field, len(doc.Data))
	for i, r := range doc.Data {
		out[i] = r.Attributes
	}
	return out, nil
}

func (c *Client) ListDrafts(ctx context.Context) ([]Draft, error) {
	var doc struct {
		Data []resource[Draft] `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/wizards", nil, http.StatusOK, &doc); err != nil {
		return nil, err
	}
	out := make([]Draft, len(doc.Data))
	for i, r := range doc.Data {
		out[i] = r.Attributes
	}
	return out, nil
}

func (c *Client) DeleteDraft(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, wizardPath(id), nil, http.StatusNoContent, nil)
}
