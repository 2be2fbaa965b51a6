package broker

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
)

const (
	headerAuthInfo     = "x-once-authentication-info"
	headerAuthTAN      = "x-once-authentication"
	headerResponseInfo = "x-http-response-info"
)

type ChallengeKind string

const (
	ChallengeNone       ChallengeKind = "none"
	ChallengeSessionTAN ChallengeKind = "session_tan"
	ChallengePushTAN    ChallengeKind = "push_tan"
	ChallengePhotoTAN   ChallengeKind = "photo_tan"
	ChallengeManualTAN  ChallengeKind = "manual_tan"
)

// Challenge is the outcome of a validation call. ID must reach the matching
// commit call unmodified; it is bound to the request it was issued for and
// can be used once.
type Challenge struct {
	ID      string
	Kind    ChallengeKind
	Type    string
	Prompt  string
	RawBody json.RawMessage

	family      MutationKind
	fingerprint string
	spent       *atomic.Bool
}

// Interactive reports whether the user has to act on a separate device.
func (c Challenge) Interactive() bool {
	return c.Kind == ChallengePhotoTAN || c.Kind == ChallengeManualTAN
}

func (c Challenge) Spent() bool {
	return c.spent != nil && c.spent.Load()
}

func (c Challenge) Family() MutationKind {
	return c.family
}

// QuoteTicketID returns the ticket id from a quote validation body, if any.
func (c Challenge) QuoteTicketID() string {
	if len(c.RawBody) == 0 {
		return ""
	}
	var ticket struct {
		QuoteTicketID string `json:"quoteTicketId"`
	}
	if err := json.Unmarshal(c.RawBody, &ticket); err != nil {
		return ""
	}
	return ticket.QuoteTicketID
}

func (c Challenge) boundTo(req MutationRequest) bool {
	return c.spent != nil && c.family == req.Kind && c.fingerprint == req.Fingerprint()
}

// claim marks the challenge used. release undoes it when no request reached
// the server.
func (c Challenge) claim() bool {
	return c.spent != nil && c.spent.CompareAndSwap(false, true)
}

func (c Challenge) release() {
	if c.spent != nil {
		c.spent.Store(false)
	}
}

func bindChallenge(c Challenge, req MutationRequest) Challenge {
	c.family = req.Kind
	c.fingerprint = req.Fingerprint()
	c.spent = new(atomic.Bool)
	return c
}

type authInfo struct {
	Typ       *string `json:"typ"`
	ID        *string `json:"id"`
	Challenge string  `json:"challenge"`
}

// parseAuthInfo decodes the x-once-authentication-info header. present is
// false when the header is missing or blank.
func parseAuthInfo(h http.Header) (info authInfo, present bool, err error) {
	raw := strings.TrimSpace(h.Get(headerAuthInfo))
	if raw == "" {
		return authInfo{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return authInfo{}, true, ErrMalformedChallengeHeader
	}
	if info.Typ == nil || info.ID == nil {
		return authInfo{}, true, ErrMalformedChallengeHeader
	}
	return info, true, nil
}

func challengeKind(typ string) (ChallengeKind, error) {
	switch strings.ToUpper(strings.TrimSpace(typ)) {
	case "P_TAN":
		return ChallengePhotoTAN, nil
	case "M_TAN":
		return ChallengeManualTAN, nil
	case "P_TAN_PUSH", "P_TAN_APP":
		return ChallengePushTAN, nil
	case "", "SESSION_TAN", "TAN_FREI":
		return ChallengeSessionTAN, nil
	default:
		return "", ErrUnsupportedChallengeType
	}
}

func authInfoHeader(challengeID string) http.Header {
	value, _ := json.Marshal(struct {
		ID string `json:"id"`
	}{ID: challengeID})
	h := http.Header{}
	h.Set(headerAuthInfo, string(value))
	return h
}
