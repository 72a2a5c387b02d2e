package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ballotguard/internal/election/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

// Service defines the registry operations the handler exposes.
type Service interface {
	Create(ctx context.Context, in models.NewElection) (*models.Election, error)
	Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	List(ctx context.Context) ([]*models.Election, error)
	AdvanceStatus(ctx context.Context, electionID id.ElectionID, target models.Status) (*models.Election, error)
	IsOpenForCasting(ctx context.Context, electionID id.ElectionID) (bool, error)
	Location() *time.Location
}

// Handler wires election endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts committee endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/elections", h.HandleCreate)
	r.Get("/admin/elections", h.HandleList)
	r.Get("/admin/elections/{id}", h.HandleGet)
	r.Post("/admin/elections/{id}/status", h.HandleAdvanceStatus)
}

// RegisterVoter mounts voter-facing endpoints.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Get("/v1/elections/{id}/open", h.HandleIsOpen)
}

// HandleCreate handles POST /admin/elections.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateElectionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	e, err := h.service.Create(ctx, req.ToNewElection())
	if err != nil {
		h.logger.WarnContext(ctx, "create election failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(e, h.service.Location()))
}

// HandleList handles GET /admin/elections.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ElectionResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toResponse(e, h.service.Location()))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /admin/elections/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.electionID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), electionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(e, h.service.Location()))
}

// HandleAdvanceStatus handles POST /admin/elections/{id}/status.
func (h *Handler) HandleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	electionID, ok := h.electionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdvanceStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	e, err := h.service.AdvanceStatus(ctx, electionID, models.Status(req.Status))
	if err != nil {
		h.logger.InfoContext(ctx, "advance election status rejected",
			"request_id", requestID,
			"election_id", electionID,
			"target", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(e, h.service.Location()))
}

// HandleIsOpen handles GET /v1/elections/{id}/open.
func (h *Handler) HandleIsOpen(w http.ResponseWriter, r *http.Request) {
	electionID, ok := h.electionID(w, r)
	if !ok {
		return
	}
	open, err := h.service.IsOpenForCasting(r.Context(), electionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OpenResponse{ElectionID: electionID.String(), Open: open})
}

func (h *Handler) electionID(w http.ResponseWriter, r *http.Request) (id.ElectionID, bool) {
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid election id"))
		return id.ElectionID{}, false
	}
	return electionID, true
}
