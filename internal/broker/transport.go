package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Transport is an already authenticated brokerage session. Paths are relative
// to the brokerage API base URL. A nil body means the request carries none.
type Transport interface {
	Get(ctx context.Context, path string, query url.Values) (*Response, error)
	Post(ctx context.Context, path string, header http.Header, body any) (*Response, error)
	Patch(ctx context.Context, path string, header http.Header, body any) (*Response, error)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v. A body that is not valid JSON yields a *ParseError.
func (r *Response) JSON(v any) error {
	if !json.Valid(r.Body) {
		return &ParseError{StatusCode: r.StatusCode, Body: r.Text()}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &ParseError{StatusCode: r.StatusCode, Body: r.Text(), Err: err}
	}
	return nil
}

// raw returns the body as a JSON document, validated but not decoded.
func (r *Response) raw() (json.RawMessage, error) {
	var doc json.RawMessage
	if err := r.JSON(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type ParseError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid json body (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("invalid json body (status %d)", e.StatusCode)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
