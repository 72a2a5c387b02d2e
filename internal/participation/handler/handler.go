package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ballotguard/internal/participation/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, voterID id.VoterID, ref id.ElectionRef) (*models.Participation, error)
	IsEligible(ctx context.Context, voterID id.VoterID, scope id.Scope) (bool, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts committee endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/participations", h.HandleRegister)
}

// RegisterVoter mounts voter-facing endpoints. The voter is taken from the
// authenticated request context.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Get("/v1/eligibility", h.HandleEligibility)
}

// HandleRegister handles POST /admin/participations.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	voterID, _ := id.ParseVoterID(req.VoterID)
	ref, _ := req.ElectionRef()

	p, err := h.service.Register(ctx, voterID, ref)
	if err != nil {
		h.logger.InfoContext(ctx, "participation registration rejected",
			"request_id", requestID,
			"voter_id", voterID,
			"election", ref.Key(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(p))
}

// HandleEligibility handles GET /v1/eligibility?ssg_election_id=... or
// ?dept_election_id=...&current_position_id=...
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	scope, err := id.ParseScope(q.Get("ssg_election_id"), q.Get("dept_election_id"), q.Get("current_position_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ok, err := h.service.IsEligible(ctx, requestcontext.VoterID(ctx), scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EligibilityResponse{Eligible: ok})
}
