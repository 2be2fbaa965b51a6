package broker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

var ErrTransportDisabled = errors.New("brokerage transport not configured")

// DisabledTransport is used when no brokerage session is available.
type DisabledTransport struct{}

func NewDisabledTransport() *DisabledTransport {
	return &DisabledTransport{}
}

func (t *DisabledTransport) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return nil, ErrTransportDisabled
}

func (t *DisabledTransport) Post(ctx context.Context, path string, header http.Header, body any) (*Response, error) {
	return nil, ErrTransportDisabled
}

func (t *DisabledTransport) Patch(ctx context.Context, path string, header http.Header, body any) (*Response, error) {
	return nil, ErrTransportDisabled
}
