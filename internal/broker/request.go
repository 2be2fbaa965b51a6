package broker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

type MutationKind string

const (
	CreateOrder MutationKind = "create_order"
	AmendOrder  MutationKind = "amend_order"
	CreateQuote MutationKind = "create_quote"
)

// MutationRequest is one state-changing action. The same value must be passed
// to the validate and the commit call.
type MutationRequest struct {
	Kind     MutationKind
	TargetID string
	Payload  json.RawMessage
}

func NewCreateOrder(order any) (MutationRequest, error) {
	return newRequest(CreateOrder, "", order)
}

// NewAmendOrder covers both amendment and cancellation of an existing order.
func NewAmendOrder(orderID string, changedOrder any) (MutationRequest, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return MutationRequest{}, ErrInvalidPayload
	}
	return newRequest(AmendOrder, orderID, changedOrder)
}

func NewCreateQuote(order any) (MutationRequest, error) {
	return newRequest(CreateQuote, "", order)
}

func newRequest(kind MutationKind, target string, payload any) (MutationRequest, error) {
	doc, err := encodeObject(payload)
	if err != nil {
		return MutationRequest{}, err
	}
	return MutationRequest{Kind: kind, TargetID: target, Payload: doc}, nil
}

func encodeObject(payload any) (json.RawMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, ErrInvalidPayload
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		return nil, ErrInvalidPayload
	}
	return json.RawMessage(buf.Bytes()), nil
}

// Fingerprint identifies the action for challenge binding.
func (r MutationRequest) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(r.Kind))
	h.Write([]byte{0})
	h.Write([]byte(r.TargetID))
	h.Write([]byte{0})
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Payload); err != nil {
		h.Write(r.Payload)
	} else {
		h.Write(buf.Bytes())
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (r MutationRequest) validateFor(kind MutationKind) error {
	if r.Kind != kind {
		return fmt.Errorf("%w: %s request expected, got %s", ErrInvalidPayload, kind, r.Kind)
	}
	if kind == AmendOrder && strings.TrimSpace(r.TargetID) == "" {
		return ErrInvalidPayload
	}
	if _, err := encodeObject(r.Payload); err != nil {
		return err
	}
	return nil
}
