package pwsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pwtools/pwrun/pkg/pwsdk/pwerr"
)

// Client talks to the platform's workflow API. It is a thin wrapper so CLI
// commands don't need to wire credentials, base URLs and error mapping
// themselves.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient returns a client for the given base URL and API key. The API key
// is required; resolve it with ResolveAPIKey before constructing the client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, pwerr.Newf(pwerr.CodeUnauthorized,
			"%s is required: set it in the environment or run 'pwrun auth login'", APIKeyEnv)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return pwerr.New(pwerr.CodeUnknown, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pwerr.New(pwerr.CodeUnknown, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pwerr.New(pwerr.CodeTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pwerr.Newf(pwerr.CodeNotFound, "%s %s: not found", method, path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pwerr.Newf(pwerr.CodeUnauthorized, "%s %s: status %d", method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pwerr.Newf(pwerr.CodeTransport, "%s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pwerr.Newf(pwerr.CodeTransport, "%s %s: decoding response: %v", method, path, err)
	}
	return nil
}

// ListWorkflows lists all workflows available in the account.
func (c *Client) ListWorkflows(ctx context.Context) ([]WorkflowInfo, error) {
	var workflows []WorkflowInfo
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// GetWorkflow gets details of a specific workflow by name.
func (c *Client) GetWorkflow(ctx context.Context, name string) (*WorkflowInfo, error) {
	var w WorkflowInfo
	if err := c.do(ctx, http.MethodGet, "/api/workflows/"+name, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// SubmitWorkflow submits a workflow run with the given inputs and returns the
// run assigned by the platform. Any failure here means the run was never
// started.
func (c *Client) SubmitWorkflow(ctx context.Context, name string, inputs map[string]any) (*RunInfo, error) {
	if inputs == nil {
		inputs = map[string]any{}
	}
	var resp SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/workflows/"+name+"/runs",
		map[string]any{"inputs": inputs}, &resp)
	if err != nil {
		if pwerr.IsCode(err, pwerr.CodeNotFound) || pwerr.IsCode(err, pwerr.CodeUnauthorized) {
			return nil, err
		}
		return nil, pwerr.Newf(pwerr.CodeSubmissionFailed, "submitting %s: %v", name, err)
	}
	return &resp.Run, nil
}

// GetRunStatus gets the current status of a workflow run.
func (c *Client) GetRunStatus(ctx context.Context, name string, runNumber int) (*RunInfo, error) {
	var run RunInfo
	path := fmt.Sprintf("/api/workflows/%s/runs/%d", name, runNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListSessions returns all active sessions in the account.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionForRun finds the session associated with a workflow run, or nil when
// the run has not exposed one yet.
func (c *Client) SessionForRun(ctx context.Context, name string, runNumber int) (*SessionInfo, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		ref := sessions[i].WorkflowRun
		if ref != nil && ref.WorkflowName == name && ref.Number == runNumber {
			return &sessions[i], nil
		}
	}
	return nil, nil
}
