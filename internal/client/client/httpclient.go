package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/client/models"
	"github.com/dmitrijs2005/nibblelog/internal/common"
)

const defaultTimeout = 30 * time.Second

type HTTPClient struct {
	baseURL     string
	http        *http.Client
	accessToken string
}

// NewHTTPClient returns a client for the server at baseURL. A nil
// httpClient gets a default one with a 30s timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *HTTPClient) SetAccessToken(token string) {
	c.accessToken = token
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}

	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Push(ctx context.Context, deviceID string, deltas []*models.Delta) (*PushResult, error) {
	body := struct {
		DeviceID string          `json:"device_id"`
		Deltas   []*models.Delta `json:"deltas"`
	}{DeviceID: deviceID, Deltas: deltas}

	var res PushResult
	if err := c.do(ctx, http.MethodPost, "/sync/push", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Pull(ctx context.Context, deviceID string, cursor int64) (*PullResult, error) {
	q := url.Values{}
	q.Set("cursor", strconv.FormatInt(cursor, 10))
	q.Set("device_id", deviceID)

	var res PullResult
	if err := c.do(ctx, http.MethodGet, "/sync/pull?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a non-200 response to one of the package errors,
// keeping the server's detail message.
func statusError(resp *http.Response) error {
	var e struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
	if e.Detail == "" {
		e.Detail = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, e.Detail)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, e.Detail)
	case resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, e.Detail)
	default:
		return fmt.Errorf("server error %d: %s", resp.StatusCode, e.Detail)
	}
}
