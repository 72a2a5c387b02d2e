package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ballotguard/internal/otp/service"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

type Service interface {
	Issue(ctx context.Context, voterID id.VoterID, scope id.Scope) (*service.IssueResult, error)
	Verify(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterVoter mounts the OTP endpoints behind voter authentication.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Post("/v1/otp/issue", h.HandleIssue)
	r.Post("/v1/otp/verify", h.HandleVerify)
}

// HandleIssue handles POST /v1/otp/issue.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	scope, _ := req.Scope()
	res, err := h.service.Issue(ctx, requestcontext.VoterID(ctx), scope)
	if err != nil {
		h.logger.InfoContext(ctx, "otp issue rejected", "request_id", requestID, "scope", scope.Key(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, IssueResponse{Scope: res.Scope.Key(), ExpiresAt: res.ExpiresAt})
}

// HandleVerify handles POST /v1/otp/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	scope, _ := req.Scope()
	if err := h.service.Verify(ctx, requestcontext.VoterID(ctx), scope, req.Code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Verified: true, Scope: scope.Key()})
}
