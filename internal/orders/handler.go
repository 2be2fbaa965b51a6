package orders

import (
	"encoding/json"
	"errors"
	"net/http"

	"tanbroker/internal/httputil"
	"tanbroker/internal/model"

	"github.com/go-chi/chi/v5"
)

const maxBatch = 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, HTTPStatus(err), httputil.ErrorResponse{Error: err.Error(), Kind: Kind(err)})
}

func (h *Handler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	var o model.Order
	if err := httputil.ReadAndValidate(r, &o); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	a, err := h.svc.ValidateOrder(r.Context(), o)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a.View())
}

type batchRequest struct {
	Orders []model.Order `json:"orders" validate:"required,min=1,dive"`
}

func (h *Handler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.ReadAndValidate(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	if len(req.Orders) > maxBatch {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "too many orders in batch", Kind: "invalid"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": h.svc.ValidateOrders(r.Context(), req.Orders)})
}

// ValidateAmendment forwards the body as the amendment document. It is not
// decoded into an Order so fields the caller left out stay out.
func (h *Handler) ValidateAmendment(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if err := httputil.ReadJSON(r, &doc); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	a, err := h.svc.ValidateAmendment(r.Context(), chi.URLParam(r, "orderID"), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a.View())
}

func (h *Handler) ValidateQuote(w http.ResponseWriter, r *http.Request) {
	var o model.Order
	if err := httputil.ReadAndValidate(r, &o); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	a, err := h.svc.ValidateQuote(r.Context(), o)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a.View())
}

type quoteRequest struct {
	QuoteTicketID string      `json:"quote_ticket_id" validate:"required"`
	Order         model.Order `json:"order"`
}

type quoteResponse struct {
	Status     string          `json:"status"`
	HTTPStatus int             `json:"http_status"`
	Quote      json.RawMessage `json:"quote,omitempty"`
	Text       string          `json:"text,omitempty"`
}

// RequestQuote answers 200 for declined quotes too; the outcome is in the body.
func (h *Handler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httputil.ReadAndValidate(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	res, err := h.svc.RequestQuote(r.Context(), req.QuoteTicketID, req.Order)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quoteResponse{
		Status:     string(res.Outcome()),
		HTTPStatus: res.StatusCode,
		Quote:      res.Quote,
		Text:       res.Text,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(chi.URLParam(r, "actionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.View())
}

func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(r.Context(), chi.URLParam(r, "actionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitRequest struct {
	TAN string `json:"tan"`
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httputil.ReadJSON(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	a, err := h.svc.Commit(r.Context(), chi.URLParam(r, "actionID"), req.TAN)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.View())
}

type activateRequest struct {
	QuoteTicketID string `json:"quote_ticket_id"`
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := httputil.ReadJSON(r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: "invalid"})
		return
	}
	a, err := h.svc.ActivateQuote(r.Context(), chi.URLParam(r, "actionID"), req.QuoteTicketID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a.View())
}
