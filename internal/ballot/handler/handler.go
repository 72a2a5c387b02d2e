package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ballotguard/internal/ballot/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

type Service interface {
	Cast(ctx context.Context, voterID id.VoterID, scope id.Scope, selections json.RawMessage) (*models.Receipt, error)
	Receipt(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Receipt, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterVoter mounts ballot endpoints behind voter authentication.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Post("/v1/ballots", h.HandleCast)
	r.Get("/v1/ballots/receipt", h.HandleReceipt)
}

// HandleCast handles POST /v1/ballots.
func (h *Handler) HandleCast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CastRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	scope, _ := req.Scope()
	receipt, err := h.service.Cast(ctx, requestcontext.VoterID(ctx), scope, req.Selections)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(receipt))
}

// HandleReceipt handles GET /v1/ballots/receipt with the scope in the query.
func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	scope, err := id.ParseScope(q.Get("ssg_election_id"), q.Get("dept_election_id"), q.Get("current_position_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.Receipt(ctx, requestcontext.VoterID(ctx), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(receipt))
}
