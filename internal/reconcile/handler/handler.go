// Package handler exposes the reconciler to committee operators.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ballotguard/internal/reconcile/models"
	"ballotguard/internal/reconcile/service"
	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

type Service interface {
	Run(ctx context.Context, opts service.RunOptions) (*models.Report, error)
	Reports() []models.Report
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/reconciliation/reports", h.HandleReports)
	r.Post("/admin/reconciliation/run", h.HandleRun)
}

// RunRequest is the optional body of POST /admin/reconciliation/run.
type RunRequest struct {
	DryRun bool `json:"dry_run"`
}

func (r *RunRequest) Normalize()      {}
func (r *RunRequest) Validate() error { return nil }

type ReportsResponse struct {
	Reports []models.Report `json:"reports"`
}

// HandleReports handles GET /admin/reconciliation/reports.
func (h *Handler) HandleReports(w http.ResponseWriter, r *http.Request) {
	reports := h.service.Reports()
	if reports == nil {
		reports = []models.Report{}
	}
	httputil.WriteJSON(w, http.StatusOK, ReportsResponse{Reports: reports})
}

// HandleRun handles POST /admin/reconciliation/run. An empty body runs for
// real. A run that could not start answers 409; a run that started and
// failed answers 500 with its report.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := &RunRequest{}
	if r.ContentLength != 0 {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[RunRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	}

	report, err := h.service.Run(ctx, service.RunOptions{DryRun: req.DryRun})
	if err != nil {
		h.logger.WarnContext(ctx, "manual reconciliation failed",
			"request_id", requestID,
			"error", err,
		)
		if report == nil {
			var de *dErrors.Error
			resp := httputil.ErrorResponse{Error: string(dErrors.CodeOf(err))}
			if errors.As(err, &de) {
				resp.ErrorDescription = de.Message
			}
			httputil.WriteJSON(w, http.StatusConflict, resp)
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, report)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
