package session

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
	"sync/atomic"
	"time"

	"tanbroker/internal/broker"

	"github.com/google/uuid"
)

const requestInfoHeader = "x-http-request-info"

// Client is a bearer-token brokerage session. Token refresh and cookie
// handling are owned by whoever issues the token.
type Client struct {
	baseURL    string
	token      string
	sessionID  string
	httpClient *http.Client
	seq        atomic.Uint32
}

type Options struct {
	BaseURL     string
	AccessToken string
	SessionID   string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("brokerage base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid brokerage base url: %w", err)
	}
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, errors.New("brokerage access token required")
	}
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(opts.AccessToken),
		sessionID:  sessionID,
		httpClient: hc,
	}, nil
}

func (c *Client) SessionID() string {
	return c.sessionID
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*broker.Response, error) {
	target := c.url(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, header http.Header, body any) (*broker.Response, error) {
	return c.do(ctx, http.MethodPost, c.url(path), header, body)
}

func (c *Client) Patch(ctx context.Context, path string, header http.Header, body any) (*broker.Response, error) {
	return c.do(ctx, http.MethodPatch, c.url(path), header, body)
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(ctx context.Context, method, target string, header http.Header, body any) (*broker.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set(requestInfoHeader, c.requestInfo())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &broker.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// requestInfo builds the client request id header. The brokerage expects a
// nine digit request id that is unique within the session.
func (c *Client) requestInfo() string {
	n := c.seq.Add(1)
	stamp := time.Now().UTC().Format("150405")
	requestID := stamp + leftPad(strconv.FormatUint(uint64(n%1000), 10), 3)
	info := map[string]any{
		"clientRequestId": map[string]string{
			"sessionId": c.sessionID,
			"requestId": requestID,
		},
	}
	data, _ := json.Marshal(info)
	return string(data)
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
