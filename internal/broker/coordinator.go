package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Coordinator drives validate -> (resolve challenge) -> commit for orders,
// order amendments and quote tickets. It holds no state besides the
// transport and is safe for concurrent use on independent actions.
type Coordinator struct {
	transport Transport
}

func NewCoordinator(t Transport) *Coordinator {
	return &Coordinator{transport: t}
}

type CommitStatus string

const (
	StatusCommitted CommitStatus = "committed"
	StatusAccepted  CommitStatus = "accepted"
	StatusRejected  CommitStatus = "rejected"
)

type CommitResult struct {
	Status   CommitStatus
	Resource json.RawMessage
}

// Validate dispatches on the request kind.
func (c *Coordinator) Validate(ctx context.Context, req MutationRequest) (Challenge, error) {
	switch req.Kind {
	case CreateOrder:
		return c.ValidateOrder(ctx, req)
	case AmendOrder:
		return c.ValidateAmendment(ctx, req)
	case CreateQuote:
		return c.ValidateQuote(ctx, req)
	default:
		return Challenge{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, req.Kind)
	}
}

func (c *Coordinator) ValidateOrder(ctx context.Context, req MutationRequest) (Challenge, error) {
	if err := req.validateFor(CreateOrder); err != nil {
		return Challenge{}, err
	}
	resp, err := c.transport.Post(ctx, "orders/validation", nil, req.Payload)
	if err != nil {
		return Challenge{}, fmt.Errorf("validate order: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return Challenge{}, newAPIError(PhaseValidate, ErrValidationFailed, resp.StatusCode, resp.Header.Get(headerResponseInfo))
	}
	ch, err := decodeWithBody(resp)
	if err != nil {
		return Challenge{}, err
	}
	return bindChallenge(ch, req), nil
}

// CommitOrder places the order validated with ch. The payload must be the one
// used for validation.
func (c *Coordinator) CommitOrder(ctx context.Context, req MutationRequest, ch Challenge) (CommitResult, error) {
	if err := req.validateFor(CreateOrder); err != nil {
		return CommitResult{}, err
	}
	if err := claim(ch, req); err != nil {
		return CommitResult{}, err
	}
	resp, err := c.transport.Post(ctx, "orders", authInfoHeader(ch.ID), req.Payload)
	if err != nil {
		ch.release()
		return CommitResult{}, fmt.Errorf("commit order: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		// This endpoint carries no response-info header on failure.
		return CommitResult{}, newAPIError(PhaseCommit, ErrCommitFailed, resp.StatusCode, strconv.Itoa(resp.StatusCode))
	}
	resource, err := resp.raw()
	if err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Status: StatusCommitted, Resource: resource}, nil
}

// ValidateAmendment validates a change or cancellation of an existing order.
// Unlike order creation there is no body short-circuit: the result is either
// an interactive challenge or a session/push challenge with an id only.
func (c *Coordinator) ValidateAmendment(ctx context.Context, req MutationRequest) (Challenge, error) {
	if err := req.validateFor(AmendOrder); err != nil {
		return Challenge{}, err
	}
	resp, err := c.transport.Post(ctx, "orders/"+url.PathEscape(req.TargetID)+"/validation", nil, req.Payload)
	if err != nil {
		return Challenge{}, fmt.Errorf("validate amendment: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return Challenge{}, newAPIError(PhaseValidate, ErrValidationFailed, resp.StatusCode, resp.Header.Get(headerResponseInfo))
	}
	info, present, err := parseAuthInfo(resp.Header)
	if err != nil {
		return Challenge{}, newAPIError(PhaseValidate, err, resp.StatusCode, resp.Header.Get(headerAuthInfo))
	}
	if !present {
		return Challenge{}, newAPIError(PhaseValidate, ErrMalformedChallengeHeader, resp.StatusCode, "")
	}
	kind, err := challengeKind(*info.Typ)
	if err != nil {
		return Challenge{}, newAPIError(PhaseValidate, err, resp.StatusCode, *info.Typ)
	}
	ch := Challenge{ID: *info.ID, Kind: kind, Type: *info.Typ}
	if ch.Interactive() {
		ch.Prompt = info.Challenge
	}
	return bindChallenge(ch, req), nil
}

// CommitAmendment applies the change. tan is attached as x-once-authentication
// only when non-empty; a manual-TAN challenge cannot be committed without one.
func (c *Coordinator) CommitAmendment(ctx context.Context, req MutationRequest, ch Challenge, tan string) (CommitResult, error) {
	if err := req.validateFor(AmendOrder); err != nil {
		return CommitResult{}, err
	}
	if !ch.boundTo(req) {
		return CommitResult{}, ErrChallengeMismatch
	}
	if ch.Kind == ChallengeManualTAN && tan == "" {
		return CommitResult{}, ErrTANRequired
	}
	if err := claim(ch, req); err != nil {
		return CommitResult{}, err
	}
	header := authInfoHeader(ch.ID)
	if tan != "" {
		header.Set(headerAuthTAN, tan)
	}
	resp, err := c.transport.Patch(ctx, "orders/"+url.PathEscape(req.TargetID), header, req.Payload)
	if err != nil {
		ch.release()
		return CommitResult{}, fmt.Errorf("commit amendment: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return CommitResult{}, newAPIError(PhaseCommit, ErrCommitFailed, resp.StatusCode, resp.Header.Get(headerResponseInfo))
	}
	resource, err := resp.raw()
	if err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Status: StatusCommitted, Resource: resource}, nil
}

func claim(ch Challenge, req MutationRequest) error {
	if !ch.boundTo(req) {
		return ErrChallengeMismatch
	}
	if !ch.claim() {
		return ErrChallengeSpent
	}
	return nil
}

// decodeWithBody implements the order-creation and quote-ticket decoding: an
// interactive typ yields a prompt, anything the session TAN already covers
// yields the validated representation from the body.
func decodeWithBody(resp *Response) (Challenge, error) {
	info, present, err := parseAuthInfo(resp.Header)
	if err != nil {
		return Challenge{}, newAPIError(PhaseValidate, err, resp.StatusCode, resp.Header.Get(headerAuthInfo))
	}
	var ch Challenge
	if present {
		kind, err := challengeKind(*info.Typ)
		if err != nil {
			return Challenge{}, newAPIError(PhaseValidate, err, resp.StatusCode, *info.Typ)
		}
		ch = Challenge{ID: *info.ID, Kind: kind, Type: *info.Typ}
		if ch.Interactive() {
			ch.Prompt = info.Challenge
			return ch, nil
		}
	}
	body, err := resp.raw()
	if err != nil {
		return Challenge{}, err
	}
	ch.Kind = ChallengeNone
	ch.RawBody = body
	return ch, nil
}
