package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"recipestore"
)

// Client talks to the remote recipe service over HTTP.
type Client struct {
	baseURL    string
	httpClient recipestore.HTTPClient
}

type ClientOpts struct {
	BaseURL    string
	HTTPClient recipestore.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// List fetches every recipe grouped by category. A body that is not a
// category map is reported as a NetworkError.
func (c *Client) List(ctx context.Context) (recipestore.Collection, error) {
	const op = "list recipes"
	data, err := c.do(ctx, op, http.MethodGet, "/recipes", nil)
	if err != nil {
		return nil, err
	}

	col := recipestore.Collection{}
	if len(bytes.TrimSpace(data)) == 0 {
		return col, nil
	}
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, &recipestore.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if col == nil {
		col = recipestore.Collection{}
	}
	return col, nil
}

// Create submits draft as a new record and returns it with its assigned id.
// When the reply is not a recipe the write still counts and the returned
// record carries the draft fields without an id.
func (c *Client) Create(ctx context.Context, draft recipestore.Draft) (recipestore.Recipe, error) {
	const op = "create recipe"
	data, err := c.do(ctx, op, http.MethodPost, "/recipes", draft)
	if err != nil {
		return recipestore.Recipe{}, err
	}
	return decodeReply(op, data, draft.WithID("")), nil
}

// Update replaces the record identified by recipe.ID. Fields missing from the
// reply, or a reply that is not a recipe at all, fall back to the submitted
// record.
func (c *Client) Update(ctx context.Context, recipe recipestore.Recipe) (recipestore.Recipe, error) {
	const op = "update recipe"
	data, err := c.do(ctx, op, http.MethodPut, "/recipes/"+url.PathEscape(recipe.ID), recipe)
	if err != nil {
		return recipestore.Recipe{}, err
	}
	return decodeReply(op, data, recipe), nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete recipe", http.MethodDelete, "/recipes/"+url.PathEscape(id), nil)
	return err
}

// decodeReply merges a write reply over fallback. The request already
// succeeded, so an undecodable body is only logged.
func decodeReply(op string, data []byte, fallback recipestore.Recipe) recipestore.Recipe {
	if len(bytes.TrimSpace(data)) == 0 {
		return fallback
	}
	reply := fallback
	if err := json.Unmarshal(data, &reply); err != nil {
		slog.Warn("CLIENT: Ignoring undecodable reply", "op", op, "error", err, "body", truncate(data, 200))
		return fallback
	}
	return reply
}

func truncate(data []byte, n int) string {
	s := strings.TrimSpace(string(data))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// do sends the request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("CLIENT: request", "op", op, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &recipestore.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &recipestore.NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &recipestore.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}
