// Package api is a client for the rover's remote HTTP API.
//
// Every write endpoint takes a JSON body and every list endpoint answers
// with a {"data": [...]} envelope. Failures (network faults and non-2xx
// answers) match ErrRequest; HTTP failures are *Error values carrying the
// server's "error" or "message" text.
package api

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
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Client talks to the remote API rooted at a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a client for baseURL (e.g. "http://127.0.0.1:5500").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostMovement records a movement command.
func (c *Client) PostMovement(ctx context.Context, req MovementRequest) error {
	return c.postJSON(ctx, "/api/movimientos", req, nil)
}

// PostObstacle records an obstacle detection event.
func (c *Client) PostObstacle(ctx context.Context, req ObstacleRequest) error {
	return c.postJSON(ctx, "/api/obstaculos", req, nil)
}

// ExecuteEvasion asks the server to run the evasion maneuver for an obstacle.
func (c *Client) ExecuteEvasion(ctx context.Context, req EvasionRequest) error {
	return c.postJSON(ctx, "/api/evasion/ejecutar", req, nil)
}

// AppendRouteStep adds one step to a named sequence.
func (c *Client) AppendRouteStep(ctx context.Context, req RouteStepRequest) error {
	return c.postJSON(ctx, "/api/rutas/paso", req, nil)
}

// NextStep returns the step that follows req.CurrentOrder, or nil when the
// server reports no further step.
func (c *Client) NextStep(ctx context.Context, req RepeatRequest) (*ExecutedStep, error) {
	var raw json.RawMessage
	if err := c.postJSON(ctx, "/api/rutas/repetir", req, &raw); err != nil {
		return nil, err
	}
	return decodeStep(raw), nil
}

// RecentSequences lists the latest sequences of a device.
func (c *Client) RecentSequences(ctx context.Context, deviceID int) ([]Sequence, error) {
	var env envelope[Sequence]
	if err := c.getJSON(ctx, "/api/rutas/ultimas", deviceID, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// RecentMovements lists the latest movements of a device.
func (c *Client) RecentMovements(ctx context.Context, deviceID int) ([]Movement, error) {
	var env envelope[Movement]
	if err := c.getJSON(ctx, "/api/movimientos/ultimos", deviceID, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// RecentObstacles lists the latest obstacle events of a device.
func (c *Client) RecentObstacles(ctx context.Context, deviceID int) ([]Obstacle, error) {
	var env envelope[Obstacle]
	if err := c.getJSON(ctx, "/api/obstaculos/ultimos", deviceID, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// decodeStep accepts {"data": [step, ...]} or a bare [step, ...]. Anything
// else, including an empty list, means the sequence has no next step.
func decodeStep(raw json.RawMessage) *ExecutedStep {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	list := raw
	if raw[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
			return nil
		}
		list = bytes.TrimSpace(wrapped.Data)
	}
	if len(list) == 0 || list[0] != '[' {
		return nil
	}

	var steps []*ExecutedStep
	if err := json.Unmarshal(list, &steps); err != nil || len(steps) == 0 || steps[0] == nil {
		return nil
	}
	return steps[0]
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, deviceID int, out any) error {
	q := url.Values{}
	q.Set("dispositivo_id", strconv.Itoa(deviceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &transportError{err: fmt.Errorf("decode %s: %w", req.URL.Path, err)}
	}
	return nil
}

func newError(status int, data []byte) *Error {
	apiErr := &Error{StatusCode: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		} else {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}
