package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestValidateQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		header     map[string]string
		body       string
		wantKind   ChallengeKind
		wantTicket string
		wantErr    error
		wantMsg    string
	}{
		{
			name:       "session_tan",
			status:     http.StatusCreated,
			header:     map[string]string{headerAuthInfo: `{"typ":"SESSION_TAN","id":"q1"}`},
			body:       `{"quoteTicketId":"qt-1"}`,
			wantKind:   ChallengeNone,
			wantTicket: "qt-1",
		},
		{
			name:     "photo_tan",
			status:   http.StatusCreated,
			header:   map[string]string{headerAuthInfo: `{"typ":"P_TAN","id":"q2","challenge":"img"}`},
			wantKind: ChallengePhotoTAN,
		},
		{
			name:    "rejected_body_message",
			status:  http.StatusBadRequest,
			header:  map[string]string{headerResponseInfo: "header is not used here"},
			body:    "venue closed",
			wantErr: ErrValidationFailed,
			wantMsg: "venue closed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := (&fakeTransport{}).queue(tt.status, tt.header, tt.body)
			ch, err := NewCoordinator(tr).ValidateQuote(context.Background(), mustRequest(t)(NewCreateQuote(testOrder)))
			if tt.wantErr != nil {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if apiErr.ServerMessage != tt.wantMsg {
					t.Fatalf("expected %q, got %q", tt.wantMsg, apiErr.ServerMessage)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ch.Kind != tt.wantKind {
				t.Fatalf("expected %s, got %s", tt.wantKind, ch.Kind)
			}
			if got := ch.QuoteTicketID(); got != tt.wantTicket {
				t.Fatalf("expected ticket %q, got %q", tt.wantTicket, got)
			}
			if call := tr.lastCall(); call.Path != "quoteticket" || call.Method != http.MethodPost {
				t.Fatalf("expected POST quoteticket, got %s %s", call.Method, call.Path)
			}
		})
	}
}

func TestActivateQuoteTicket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "no_content", status: http.StatusNoContent},
		{name: "ok", status: http.StatusOK, wantErr: ErrActivationFailed},
		{name: "created", status: http.StatusCreated, wantErr: ErrActivationFailed},
		{name: "not_found", status: http.StatusNotFound, wantErr: ErrActivationFailed},
		{name: "server_error", status: http.StatusInternalServerError, wantErr: ErrActivationFailed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := (&fakeTransport{}).
				queue(http.StatusCreated, map[string]string{headerAuthInfo: `{"typ":"SESSION_TAN","id":"q1"}`}, `{"quoteTicketId":"qt-1"}`).
				queue(tt.status, map[string]string{headerResponseInfo: "ticket expired"}, "")
			c := NewCoordinator(tr)
			ch, err := c.ValidateQuote(context.Background(), mustRequest(t)(NewCreateQuote(testOrder)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			err = c.ActivateQuoteTicket(context.Background(), ch.QuoteTicketID(), ch)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			} else {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if apiErr.Phase != PhaseCommit || apiErr.HTTPStatus != tt.status {
					t.Fatalf("unexpected api error: %+v", apiErr)
				}
			}
			call := tr.lastCall()
			if call.Method != http.MethodPatch || call.Path != "quoteticket/qt-1" {
				t.Fatalf("expected PATCH quoteticket/qt-1, got %s %s", call.Method, call.Path)
			}
			if call.Body != nil {
				t.Fatalf("expected empty body, got %s", call.Body)
			}
			if got := call.Header.Get(headerAuthInfo); got != `{"id":"q1"}` {
				t.Fatalf("expected auth info header, got %q", got)
			}
		})
	}
}

func TestActivateQuoteTicket_OtherTicket(t *testing.T) {
	t.Parallel()

	tr := (&fakeTransport{}).queue(http.StatusCreated, map[string]string{headerAuthInfo: `{"typ":"SESSION_TAN","id":"q1"}`}, `{"quoteTicketId":"qt-1"}`)
	c := NewCoordinator(tr)
	ch, err := c.ValidateQuote(context.Background(), mustRequest(t)(NewCreateQuote(testOrder)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.ActivateQuoteTicket(context.Background(), "qt-2", ch); !errors.Is(err, ErrChallengeMismatch) {
		t.Fatalf("expected %v, got %v", ErrChallengeMismatch, err)
	}
	if tr.callCount() != 1 {
		t.Fatalf("expected no activation call, got %d calls", tr.callCount())
	}
}

func TestRequestQuote(t *testing.T) {
	t.Parallel()

	t.Run("quoted", func(t *testing.T) {
		t.Parallel()

		tr := (&fakeTransport{}).queue(http.StatusOK, nil, `{"quoteId":"x","limit":{"value":"10.5","unit":"EUR"}}`)
		res, err := NewCoordinator(tr).RequestQuote(context.Background(), testOrder, "qt-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.OK() || res.Outcome() != StatusAccepted || res.Text != "" {
			t.Fatalf("unexpected result: %+v", res)
		}
		call := tr.lastCall()
		if call.Path != "quotes" || call.Method != http.MethodPost {
			t.Fatalf("expected POST quotes, got %s %s", call.Method, call.Path)
		}
		var sent map[string]any
		if err := json.Unmarshal(call.Body, &sent); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sent["quoteTicketId"] != "qt-1" || sent["depotId"] != "D-1" {
			t.Fatalf("unexpected payload: %v", sent)
		}
	})

	t.Run("declined_is_data", func(t *testing.T) {
		t.Parallel()

		tr := (&fakeTransport{}).queue(http.StatusNotFound, nil, "no quote available")
		res, err := NewCoordinator(tr).RequestQuote(context.Background(), testOrder, "qt-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.StatusCode != http.StatusNotFound || res.Text != "no quote available" || res.Quote != nil {
			t.Fatalf("unexpected result: %+v", res)
		}
		if res.Outcome() != StatusRejected {
			t.Fatalf("expected %s, got %s", StatusRejected, res.Outcome())
		}
	})

	t.Run("unreadable_quote", func(t *testing.T) {
		t.Parallel()

		tr := (&fakeTransport{}).queue(http.StatusOK, nil, "<html>")
		_, err := NewCoordinator(tr).RequestQuote(context.Background(), testOrder, "qt-1")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Phase != PhaseQuote {
			t.Fatalf("expected quote APIError, got %v", err)
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected ParseError in chain, got %v", err)
		}
	})

	t.Run("transport_error", func(t *testing.T) {
		t.Parallel()

		tr := &fakeTransport{err: ErrTransportDisabled}
		if _, err := NewCoordinator(tr).RequestQuote(context.Background(), testOrder, "qt-1"); !errors.Is(err, ErrTransportDisabled) {
			t.Fatalf("expected %v, got %v", ErrTransportDisabled, err)
		}
	})
}

func TestFailureStylesDiffer(t *testing.T) {
	t.Parallel()

	tr := (&fakeTransport{}).
		queue(http.StatusNotFound, nil, "quote declined").
		queue(http.StatusCreated, map[string]string{headerAuthInfo: `{"typ":"SESSION_TAN","id":"c1"}`}, `{}`).
		queue(http.StatusNotFound, nil, "")
	c := NewCoordinator(tr)

	res, err := c.RequestQuote(context.Background(), testOrder, "qt-1")
	if err != nil || res.StatusCode != http.StatusNotFound || res.Text != "quote declined" {
		t.Fatalf("expected (404, text) without error, got %+v, %v", res, err)
	}

	req := mustRequest(t)(NewCreateOrder(testOrder))
	ch, err := c.ValidateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.CommitOrder(context.Background(), req, ch); !errors.Is(err, ErrCommitFailed) {
		t.Fatalf("expected %v, got %v", ErrCommitFailed, err)
	}
}
