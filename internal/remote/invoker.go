// Package remote invokes named resolver actions and delegates parts of
// a merged schema to them. An action is a compute unit exposing a
// GraphQL entry point reachable by name, either over HTTP or in
// process.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Invoker calls a named action with JSON parameters and returns its
// JSON result.
type Invoker interface {
	Invoke(ctx context.Context, action string, params map[string]any) (json.RawMessage, error)
}

// HTTPInvoker reaches actions as HTTP endpoints under one base URL,
// POSTing the parameters as a JSON body.
type HTTPInvoker struct {
	BaseURL string
	Client  *http.Client
}

func (h *HTTPInvoker) Invoke(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("remote: marshaling params for action %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/"+action, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: invoking action %s: %w", action, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote: action %s returned status %d", action, resp.StatusCode)
	}
	return raw, nil
}

// ActionFunc is an action callable in process.
type ActionFunc func(ctx context.Context, params map[string]any) (any, error)

// InProcessInvoker dispatches actions to registered Go functions. It
// serves tests and single-binary deployments where the remote resolver
// runs in the same process.
type InProcessInvoker struct {
	Actions map[string]ActionFunc
}

func (p *InProcessInvoker) Invoke(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	fn, ok := p.Actions[action]
	if !ok {
		return nil, fmt.Errorf("remote: unknown action %s", action)
	}
	result, err := fn(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
