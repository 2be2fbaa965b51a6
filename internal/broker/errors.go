package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidationFailed         = errors.New("validation failed")
	ErrCommitFailed             = errors.New("commit failed")
	ErrActivationFailed         = errors.New("quote ticket activation failed")
	ErrMalformedChallengeHeader = errors.New("malformed challenge header")
	ErrUnsupportedChallengeType = errors.New("unsupported challenge type")

	ErrChallengeMismatch = errors.New("challenge does not belong to this request")
	ErrChallengeSpent    = errors.New("challenge already used")
	ErrTANRequired       = errors.New("tan required for this challenge")
	ErrInvalidPayload    = errors.New("payload must be a json object")
)

type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseCommit   Phase = "commit"
	PhaseQuote    Phase = "quote"
)

// APIError is a non-success answer from the brokerage. ServerMessage is taken
// from wherever the endpoint puts it: the x-http-response-info header, the raw
// body, or only the status code.
type APIError struct {
	Phase         Phase
	HTTPStatus    int
	ServerMessage string
	kind          error
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.ServerMessage)
	if msg == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Phase, e.kind, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Phase, e.kind, e.HTTPStatus, msg)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// ResponseMessage is one entry of the brokerage's response-info envelope.
type ResponseMessage struct {
	Severity string `json:"severity"`
	Key      string `json:"key"`
	Message  string `json:"message"`
}

// Details decodes ServerMessage as a {"messages":[...]} envelope. It returns
// nil when the message is plain text.
func (e *APIError) Details() []ResponseMessage {
	var envelope struct {
		Messages []ResponseMessage `json:"messages"`
	}
	if err := json.Unmarshal([]byte(e.ServerMessage), &envelope); err != nil {
		return nil
	}
	return envelope.Messages
}

func newAPIError(phase Phase, kind error, status int, message string) *APIError {
	return &APIError{Phase: phase, HTTPStatus: status, ServerMessage: message, kind: kind}
}
