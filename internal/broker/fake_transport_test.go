package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
)

type recordedCall struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// fakeTransport answers every call with the next queued response.
type fakeTransport struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	calls     []recordedCall
}

func (f *fakeTransport) queue(status int, header map[string]string, body string) *fakeTransport {
	h := http.Header{}
	for k, v := range header {
		h.Set(k, v)
	}
	f.responses = append(f.responses, &Response{StatusCode: status, Header: h, Body: []byte(body)})
	return f
}

func (f *fakeTransport) do(method, path string, header http.Header, body any) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	f.calls = append(f.calls, recordedCall{Method: method, Path: path, Header: header, Body: raw})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeTransport) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return f.do(http.MethodGet, path, nil, nil)
}

func (f *fakeTransport) Post(ctx context.Context, path string, header http.Header, body any) (*Response, error) {
	return f.do(http.MethodPost, path, header, body)
}

func (f *fakeTransport) Patch(ctx context.Context, path string, header http.Header, body any) (*Response, error) {
	return f.do(http.MethodPatch, path, header, body)
}

func (f *fakeTransport) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return recordedCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func mustRequest(t *testing.T) func(MutationRequest, error) MutationRequest {
	return func(req MutationRequest, err error) MutationRequest {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return req
	}
}
