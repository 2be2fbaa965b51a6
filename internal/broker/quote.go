package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QuoteResult is the outcome of a quote request. A declined quote is a normal
// business result, so failures are carried here instead of as an error.
type QuoteResult struct {
	StatusCode int
	Quote      json.RawMessage
	Text       string
}

func (r QuoteResult) OK() bool {
	return r.StatusCode == http.StatusOK
}

func (r QuoteResult) Outcome() CommitStatus {
	if r.OK() {
		return StatusAccepted
	}
	return StatusRejected
}

// ValidateQuote creates a quote ticket. A non-interactive typ means the
// session TAN covers it, but the ticket still has to be activated with
// ActivateQuoteTicket before quoting.
func (c *Coordinator) ValidateQuote(ctx context.Context, req MutationRequest) (Challenge, error) {
	if err := req.validateFor(CreateQuote); err != nil {
		return Challenge{}, err
	}
	resp, err := c.transport.Post(ctx, "quoteticket", nil, req.Payload)
	if err != nil {
		return Challenge{}, fmt.Errorf("validate quote: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		// The quote ticket endpoint reports errors in the body, not in a header.
		return Challenge{}, newAPIError(PhaseValidate, ErrValidationFailed, resp.StatusCode, resp.Text())
	}
	ch, err := decodeWithBody(resp)
	if err != nil {
		return Challenge{}, err
	}
	return bindChallenge(ch, req), nil
}

// ActivateQuoteTicket activates quoteTicketID with the challenge from
// ValidateQuote. Only 204 counts as success.
func (c *Coordinator) ActivateQuoteTicket(ctx context.Context, quoteTicketID string, ch Challenge) error {
	quoteTicketID = strings.TrimSpace(quoteTicketID)
	if quoteTicketID == "" {
		return fmt.Errorf("%w: quote ticket id required", ErrInvalidPayload)
	}
	if ch.spent == nil || ch.family != CreateQuote {
		return ErrChallengeMismatch
	}
	if known := ch.QuoteTicketID(); known != "" && known != quoteTicketID {
		return ErrChallengeMismatch
	}
	if !ch.claim() {
		return ErrChallengeSpent
	}
	resp, err := c.transport.Patch(ctx, "quoteticket/"+url.PathEscape(quoteTicketID), authInfoHeader(ch.ID), nil)
	if err != nil {
		ch.release()
		return fmt.Errorf("activate quote ticket: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return newAPIError(PhaseCommit, ErrActivationFailed, resp.StatusCode, resp.Header.Get(headerResponseInfo))
	}
	return nil
}

// RequestQuote asks the venue to price the order against an activated ticket.
// Non-200 answers are returned as (status, raw text) with a nil error; only a
// transport failure or an unreadable 200 body is an error.
func (c *Coordinator) RequestQuote(ctx context.Context, order any, quoteTicketID string) (QuoteResult, error) {
	payload, err := withQuoteTicket(order, quoteTicketID)
	if err != nil {
		return QuoteResult{}, err
	}
	resp, err := c.transport.Post(ctx, "quotes", nil, payload)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("request quote: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return QuoteResult{StatusCode: resp.StatusCode, Text: resp.Text()}, nil
	}
	quote, err := resp.raw()
	if err != nil {
		return QuoteResult{}, newAPIError(PhaseQuote, err, resp.StatusCode, resp.Text())
	}
	return QuoteResult{StatusCode: resp.StatusCode, Quote: quote}, nil
}

func withQuoteTicket(order any, quoteTicketID string) (json.RawMessage, error) {
	doc, err := encodeObject(order)
	if err != nil {
		return nil, err
	}
	quoteTicketID = strings.TrimSpace(quoteTicketID)
	if quoteTicketID == "" {
		return doc, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, ErrInvalidPayload
	}
	id, err := json.Marshal(quoteTicketID)
	if err != nil {
		return nil, err
	}
	fields["quoteTicketId"] = id
	return json.Marshal(fields)
}
