package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tanbroker/internal/auth"
	"tanbroker/internal/broker"
	"tanbroker/internal/events"
	"tanbroker/internal/journal"
	"tanbroker/internal/logging"
	"tanbroker/internal/metrics"
	"tanbroker/internal/model"
	"tanbroker/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const batchConcurrency = 4

const (
	stepValidate = "validate"
	stepCommit   = "commit"
	stepActivate = "activate"
	stepQuote    = "quote"
	stepDiscard  = "discard"
)

// Service turns operator requests into brokerage actions. It is the only
// layer that logs, counts and journals; the coordinator stays silent.
type Service struct {
	coord   *broker.Coordinator
	store   *Store
	journal journal.Journal
	bus     *events.Bus
	pub     events.Publisher
	metrics *metrics.Metrics
	log     *logging.Logger
}

func NewService(coord *broker.Coordinator, store *Store, jr journal.Journal, bus *events.Bus, pub events.Publisher, m *metrics.Metrics, logger *logging.Logger) *Service {
	if jr == nil {
		jr = journal.Noop{}
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Service{coord: coord, store: store, journal: jr, bus: bus, pub: pub, metrics: m, log: logger}
}

// ActionView is what the local API shows for an action.
type ActionView struct {
	ID            string          `json:"id"`
	Family        string          `json:"family"`
	TargetID      string          `json:"target_id,omitempty"`
	Status        string          `json:"status"`
	ChallengeKind string          `json:"challenge_kind,omitempty"`
	ChallengeType string          `json:"challenge_type,omitempty"`
	Prompt        string          `json:"prompt,omitempty"`
	Validated     json.RawMessage `json:"validated,omitempty"`
	QuoteTicketID string          `json:"quote_ticket_id,omitempty"`
	Resource      json.RawMessage `json:"resource,omitempty"`
	HTTPStatus    int             `json:"http_status,omitempty"`
	Message       string          `json:"message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (a Action) View() ActionView {
	return ActionView{
		ID:            a.ID,
		Family:        string(a.Family),
		TargetID:      a.TargetID,
		Status:        string(a.Status),
		ChallengeKind: string(a.Challenge.Kind),
		ChallengeType: a.Challenge.Type,
		Prompt:        a.Challenge.Prompt,
		Validated:     a.Challenge.RawBody,
		QuoteTicketID: a.QuoteTicketID,
		Resource:      a.Resource,
		HTTPStatus:    a.HTTPStatus,
		Message:       a.Message,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (s *Service) ValidateOrder(ctx context.Context, o model.Order) (Action, error) {
	if err := o.CheckPlacement(); err != nil {
		return Action{}, err
	}
	o.OrderID = ""
	req, err := broker.NewCreateOrder(o)
	if err != nil {
		return Action{}, err
	}
	return s.validate(ctx, req)
}

// ValidateAmendment validates a change or cancellation of orderID. doc is
// forwarded as given; only its orderId is set. An empty doc is sent as {}.
func (s *Service) ValidateAmendment(ctx context.Context, orderID string, doc json.RawMessage) (Action, error) {
	orderID = strings.TrimSpace(orderID)
	payload, err := withOrderID(doc, orderID)
	if err != nil {
		return Action{}, err
	}
	req, err := broker.NewAmendOrder(orderID, payload)
	if err != nil {
		return Action{}, err
	}
	return s.validate(ctx, req)
}

func withOrderID(doc json.RawMessage, orderID string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(doc)) > 0 {
		if err := json.Unmarshal(doc, &fields); err != nil || fields == nil {
			return nil, fmt.Errorf("%w: amendment must be a json object", broker.ErrInvalidPayload)
		}
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id required", broker.ErrInvalidPayload)
	}
	id, err := json.Marshal(orderID)
	if err != nil {
		return nil, err
	}
	fields["orderId"] = id
	return json.Marshal(fields)
}

func (s *Service) ValidateQuote(ctx context.Context, o model.Order) (Action, error) {
	if err := o.Check(); err != nil {
		return Action{}, err
	}
	req, err := broker.NewCreateQuote(o)
	if err != nil {
		return Action{}, err
	}
	return s.validate(ctx, req)
}

type BatchItem struct {
	Action *ActionView `json:"action,omitempty"`
	Error  string      `json:"error,omitempty"`
	Kind   string      `json:"kind,omitempty"`
}

// ValidateOrders validates independent orders concurrently. One failure does
// not stop the others; results keep the input order.
func (s *Service) ValidateOrders(ctx context.Context, list []model.Order) []BatchItem {
	out := make([]BatchItem, len(list))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i := range list {
		i := i
		g.Go(func() error {
			a, err := s.ValidateOrder(ctx, list[i])
			if err != nil {
				out[i] = BatchItem{Error: err.Error(), Kind: Kind(err)}
				return nil
			}
			v := a.View()
			out[i] = BatchItem{Action: &v}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) validate(ctx context.Context, req broker.MutationRequest) (Action, error) {
	started := time.Now()
	ch, err := s.coord.Validate(ctx, req)
	if err != nil {
		s.observe(ctx, Action{Family: req.Kind, TargetID: req.TargetID, Status: types.ActionStatusFailed}, stepValidate, started, err)
		return Action{}, err
	}
	status := types.ActionStatusReady
	if ch.Interactive() {
		status = types.ActionStatusChallenged
	}
	a := s.store.Put(Action{
		Family:        ch.Family(),
		TargetID:      req.TargetID,
		Status:        status,
		Request:       req,
		Challenge:     ch,
		QuoteTicketID: ch.QuoteTicketID(),
	})
	s.observe(ctx, a, stepValidate, started, nil)
	s.emit(ctx, events.TypeChallenge, a, false)
	return a, nil
}

// Commit places a validated order or applies a validated amendment. tan is
// only used for amendments.
func (s *Service) Commit(ctx context.Context, actionID, tan string) (Action, error) {
	a, err := s.store.Take(actionID)
	if err != nil {
		return Action{}, err
	}
	if a.Family != broker.CreateOrder && a.Family != broker.AmendOrder {
		s.store.Restore(a)
		return Action{}, fmt.Errorf("%w: %s actions are activated, not committed", ErrWrongFamily, a.Family)
	}

	started := time.Now()
	var res broker.CommitResult
	if a.Family == broker.CreateOrder {
		res, err = s.coord.CommitOrder(ctx, a.Request, a.Challenge)
	} else {
		res, err = s.coord.CommitAmendment(ctx, a.Request, a.Challenge, strings.TrimSpace(tan))
	}
	if err != nil {
		a = s.settle(ctx, a, stepCommit, started, err)
		return a, err
	}
	a.Status = types.ActionStatusCommitted
	a.Resource = res.Resource
	a.HTTPStatus = 0
	a.Message = ""
	s.store.Restore(a)
	s.observe(ctx, a, stepCommit, started, nil)
	s.emit(ctx, events.TypeCommitted, a, true)
	return a, nil
}

// ActivateQuote activates the quote ticket of a validated quote action. An
// empty ticketID falls back to the id the validation returned.
func (s *Service) ActivateQuote(ctx context.Context, actionID, ticketID string) (Action, error) {
	a, err := s.store.Take(actionID)
	if err != nil {
		return Action{}, err
	}
	if a.Family != broker.CreateQuote {
		s.store.Restore(a)
		return Action{}, fmt.Errorf("%w: only quote tickets can be activated", ErrWrongFamily)
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		ticketID = a.QuoteTicketID
	}

	started := time.Now()
	if err := s.coord.ActivateQuoteTicket(ctx, ticketID, a.Challenge); err != nil {
		a = s.settle(ctx, a, stepActivate, started, err)
		return a, err
	}
	a.Status = types.ActionStatusActivated
	a.QuoteTicketID = ticketID
	a.HTTPStatus = 0
	a.Message = ""
	s.store.Restore(a)
	s.observe(ctx, a, stepActivate, started, nil)
	s.emit(ctx, events.TypeActivated, a, true)
	return a, nil
}

// RequestQuote prices o against an activated ticket. A declined quote is
// returned as a result with a nil error.
func (s *Service) RequestQuote(ctx context.Context, ticketID string, o model.Order) (broker.QuoteResult, error) {
	if err := o.Check(); err != nil {
		return broker.QuoteResult{}, err
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return broker.QuoteResult{}, fmt.Errorf("%w: quote ticket id required", broker.ErrInvalidPayload)
	}

	started := time.Now()
	res, err := s.coord.RequestQuote(ctx, o, ticketID)
	a := Action{ID: uuid.NewString(), Family: broker.CreateQuote, TargetID: ticketID}
	if err != nil {
		a.Status = types.ActionStatusFailed
		s.observe(ctx, a, stepQuote, started, err)
		return res, err
	}
	a.Status = types.ActionStatusQuoted
	if !res.OK() {
		a.Status = types.ActionStatusDeclined
		a.HTTPStatus = res.StatusCode
		a.Message = res.Text
	}
	a.Resource = res.Quote
	s.observe(ctx, a, stepQuote, started, nil)
	s.emit(ctx, events.TypeQuote, a, false)
	return res, nil
}

func (s *Service) Get(actionID string) (Action, error) {
	return s.store.Get(actionID)
}

// Discard drops an action. Its challenge is never committed.
func (s *Service) Discard(ctx context.Context, actionID string) error {
	started := time.Now()
	a, err := s.store.Delete(actionID)
	if err != nil {
		return err
	}
	a.Status = types.ActionStatusDiscarded
	s.observe(ctx, a, stepDiscard, started, nil)
	s.emit(ctx, events.TypeDiscarded, a, false)
	return nil
}

// settle puts a taken action back after a failed step. Only a rejection by
// the brokerage ends the action; local guard failures and transport errors
// leave it as it was so the operator can retry.
func (s *Service) settle(ctx context.Context, a Action, step string, started time.Time, err error) Action {
	var apiErr *broker.APIError
	if errors.As(err, &apiErr) {
		a.Status = types.ActionStatusFailed
		a.HTTPStatus = apiErr.HTTPStatus
		a.Message = apiErr.ServerMessage
		s.store.Restore(a)
		s.observe(ctx, a, step, started, err)
		s.emit(ctx, events.TypeFailed, a, true)
		return a
	}
	s.store.Restore(a)
	failed := a
	failed.Message = err.Error()
	s.observe(ctx, failed, step, started, err)
	return a
}

func (s *Service) observe(ctx context.Context, a Action, step string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
	} else if a.Status == types.ActionStatusDeclined {
		outcome = "declined"
	}
	s.metrics.Observe(string(a.Family), step, outcome, started)
	s.metrics.SetPending(s.store.Pending())

	msg := a.Message
	if err != nil && msg == "" {
		msg = err.Error()
	}
	operator, _ := auth.SubjectFrom(ctx)
	fields := logging.Fields{
		Operator:   operator,
		ActionID:   a.ID,
		Family:     string(a.Family),
		Step:       step,
		Status:     string(a.Status),
		HTTPStatus: a.HTTPStatus,
		DurationMS: time.Since(started).Milliseconds(),
		Message:    msg,
	}
	if a.Family == broker.AmendOrder {
		fields.OrderID = a.TargetID
	}
	s.log.Log(fields)

	if a.ID == "" {
		return
	}
	entry := journal.Entry{
		ActionID:      a.ID,
		Family:        string(a.Family),
		TargetID:      a.TargetID,
		ChallengeKind: string(a.Challenge.Kind),
		Status:        string(a.Status),
		HTTPStatus:    a.HTTPStatus,
		Message:       msg,
	}
	if jerr := s.journal.Record(ctx, entry); jerr != nil {
		s.log.Log(logging.Fields{ActionID: a.ID, Step: "journal", Status: "error", Message: jerr.Error()})
	}
}

// emit pushes the action to websocket subscribers and, for terminal steps,
// to the downstream publisher.
func (s *Service) emit(ctx context.Context, typ string, a Action, downstream bool) {
	evt := events.Event{Type: typ, Data: a.View()}
	if s.bus != nil {
		s.bus.Publish(evt)
	}
	if !downstream {
		return
	}
	if err := s.pub.Publish(ctx, a.ID, evt); err != nil {
		s.log.Log(logging.Fields{ActionID: a.ID, Step: "publish", Status: "error", Message: err.Error()})
	}
}
