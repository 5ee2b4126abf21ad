// Package client is the gateway to the remote services the menu depends on:
// a Parse-compatible object store holding menu items, and the open-meteo
// forecast API.
//
// Conventions:
//   - Every method accepts context.Context for cancellation and timeouts.
//   - Every call is one round trip. There are no retries and no caching.
//   - Object-store requests carry the application id and client key
//     headers. Weather requests are unauthenticated.
//   - Failures are returned as *TransportError, *ServerError,
//     *ValidationError, *NotFoundError or *DataUnavailableError.
package client

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
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultWeatherURL = "https://api.open-meteo.com/v1/forecast"
	defaultTimezone   = "America/Sao_Paulo"
	classesPathPrefix = "/classes"

	headerApplicationID = "X-Parse-Application-Id"
	headerClientKey     = "X-Parse-Client-Key"
	headerRequestID     = "X-Parse-Request-Id"

	maxResponseBytes = 4 << 20
)

// Config holds gateway configuration.
type Config struct {
	// BaseURL is the root URL of the object store (for example:
	// https://parseapi.back4app.com).
	BaseURL string
	// ApplicationID is sent as X-Parse-Application-Id on every store request.
	ApplicationID string
	// ClientKey is sent as X-Parse-Client-Key on every store request.
	ClientKey string
	// WeatherURL is the forecast endpoint. Defaults to open-meteo.
	WeatherURL string
	// Timezone is passed to the forecast API. Defaults to America/Sao_Paulo.
	Timezone string
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient is an optional custom http.Client.
	HTTPClient *http.Client
}

// Client is the typed gateway for the object store and the weather API.
type Client struct {
	http       *http.Client
	baseURL    string
	weatherURL string
	location   *time.Location
	cfg        Config
}

// New creates a new gateway client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.TrimSpace(cfg.ApplicationID) == "" {
		return nil, fmt.Errorf("client: ApplicationID is required")
	}
	if strings.TrimSpace(cfg.ClientKey) == "" {
		return nil, fmt.Errorf("client: ClientKey is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if strings.TrimSpace(cfg.WeatherURL) == "" {
		cfg.WeatherURL = defaultWeatherURL
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = defaultTimezone
	}
	cfg.BaseURL = baseURL

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("client: loading timezone %q: %w", cfg.Timezone, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:       httpClient,
		baseURL:    baseURL,
		weatherURL: strings.TrimSpace(cfg.WeatherURL),
		location:   loc,
		cfg:        cfg,
	}, nil
}

type listResponse struct {
	Results []types.MenuRecord `json:"results"`
}

type writeResponse struct {
	ObjectID  string `json:"objectId"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type errorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// List returns every object of the given class.
func (c *Client) List(ctx context.Context, class string) ([]types.MenuRecord, error) {
	path, err := classPath(class, "")
	if err != nil {
		return nil, err
	}

	var result listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result, class, ""); err != nil {
		return nil, fmt.Errorf("listing %s: %w", class, err)
	}
	if result.Results == nil {
		return []types.MenuRecord{}, nil
	}
	return result.Results, nil
}

// Create stores a new object and returns the identifier assigned by the
// object store.
func (c *Client) Create(ctx context.Context, class string, fields types.MenuFields) (string, error) {
	path, err := classPath(class, "")
	if err != nil {
		return "", err
	}

	var result writeResponse
	if err := c.do(ctx, http.MethodPost, path, fields, &result, class, ""); err != nil {
		return "", fmt.Errorf("creating %s: %w", class, err)
	}
	if result.ObjectID == "" {
		return "", fmt.Errorf("creating %s: %w", class, &ServerError{
			Status:  http.StatusCreated,
			Message: "server response did not include an objectId",
		})
	}
	return result.ObjectID, nil
}

// Update sends the non-nil fields of patch to an existing object.
func (c *Client) Update(ctx context.Context, class, id string, patch types.MenuPatch) error {
	objectID := strings.TrimSpace(id)
	path, err := classPath(class, objectID)
	if err != nil {
		return err
	}
	if objectID == "" {
		return fmt.Errorf("object id is required")
	}

	if err := c.do(ctx, http.MethodPut, path, patch, nil, class, objectID); err != nil {
		return fmt.Errorf("updating %s %q: %w", class, objectID, err)
	}
	return nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, class, id string) error {
	objectID := strings.TrimSpace(id)
	path, err := classPath(class, objectID)
	if err != nil {
		return err
	}
	if objectID == "" {
		return fmt.Errorf("object id is required")
	}

	if err := c.do(ctx, http.MethodDelete, path, nil, nil, class, objectID); err != nil {
		return fmt.Errorf("deleting %s %q: %w", class, objectID, err)
	}
	return nil
}

func classPath(class, id string) (string, error) {
	name := strings.TrimSpace(class)
	if name == "" {
		return "", fmt.Errorf("class name is required")
	}
	path := classesPathPrefix + "/" + url.PathEscape(name)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return path, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, class, id string) error {
	logger := log.Ctx(ctx).With().
		Str("component", "gateway").
		Str("method", method).
		Str("path", path).
		Logger()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set(headerApplicationID, c.cfg.ApplicationID)
	req.Header.Set(headerClientKey, c.cfg.ClientKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPut {
		req.Header.Set(headerRequestID, uuid.NewString())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("object store request failed")
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("object store request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw, class, id)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServerError{
			Status:  resp.StatusCode,
			Message: "unable to parse server response",
		}
	}
	return nil
}

// statusError maps a non-success object-store response to the gateway
// error taxonomy. A body that is not JSON is reported as unparseable
// whatever the status; an empty body falls back to the status code.
func statusError(status int, raw []byte, class, id string) error {
	var payload errorResponse
	parsed := false
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return &ServerError{Status: status, Message: "unable to parse server response"}
		}
		parsed = true
	}

	message := strings.TrimSpace(payload.Error)
	if message == "" {
		message = fmt.Sprintf("status %d", status)
	}

	switch {
	case status == http.StatusNotFound || (parsed && payload.Code == parseCodeObjectNotFound):
		return &NotFoundError{Class: class, ID: id, Message: message}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ValidationError{Status: status, Code: payload.Code, Message: message}
	default:
		return &ServerError{Status: status, Code: payload.Code, Message: message}
	}
}
