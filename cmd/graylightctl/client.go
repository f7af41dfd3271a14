package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/graylight/internal/api"
	"github.com/nerrad567/graylight/internal/light"
)

const maxResponseBytes = 1 << 20

// client talks to a running graylight over /api/v1.
type client struct {
	base string
	http *http.Client
}

func newClient(server string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(server, "/") + "/api/v1",
		http: &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx response from the server.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

type lightList struct {
	Lights []light.Definition `json:"lights"`
	Count  int                `json:"count"`
}

type historyList struct {
	LightID string               `json:"light_id"`
	History []light.HistoryEntry `json:"history"`
	Count   int                  `json:"count"`
}

type healthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     int64             `json:"uptime_seconds"`
	Lights     int               `json:"lights"`
	Components map[string]string `json:"components"`
}

func (c *client) Health(ctx context.Context) (healthStatus, error) {
	var out healthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *client) ListLights(ctx context.Context, protocol string) (lightList, error) {
	path := "/lights"
	if protocol != "" {
		path += "?protocol=" + url.QueryEscape(protocol)
	}
	var out lightList
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *client) GetLight(ctx context.Context, id string) (light.Definition, error) {
	var out light.Definition
	err := c.do(ctx, http.MethodGet, "/lights/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *client) GetState(ctx context.Context, id string) (api.StateResponse, error) {
	var out api.StateResponse
	err := c.do(ctx, http.MethodGet, "/lights/"+url.PathEscape(id)+"/state", nil, &out)
	return out, err
}

// SetState sends a partial state to the light.
func (c *client) SetState(ctx context.Context, id string, delta light.State) (api.StateResponse, error) {
	var out api.StateResponse
	err := c.do(ctx, http.MethodPut, "/lights/"+url.PathEscape(id)+"/state", delta, &out)
	return out, err
}

func (c *client) History(ctx context.Context, id string, limit int) (historyList, error) {
	path := "/lights/" + url.PathEscape(id) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out historyList
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{}
		_ = json.Unmarshal(data, apiErr) //nolint:errcheck // body may not be an error document
		apiErr.Status = resp.StatusCode
		if out != nil {
			// Some endpoints, /health among them, describe failures in
			// their normal response document.
			_ = json.Unmarshal(data, out) //nolint:errcheck // body may be an error document
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
