package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ballotguard/internal/otp/service"
	"ballotguard/internal/otp/store"
	"ballotguard/internal/platform/config"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/testutil"
)

func TestOTPHandlers(t *testing.T) {
	var delivered string
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(store.NewInMemory(), config.OTPConfig{
		TTL: 5 * time.Minute, FreshWindow: 10 * time.Minute, CodeLength: 6, MaxAttempts: 3,
		IssueInterval: time.Second, IssueBurst: 5, BcryptCost: bcrypt.MinCost,
	},
		service.WithLogger(logger),
		service.WithNotifier(service.NotifierFunc(func(_ context.Context, _ id.VoterID, _ id.Scope, code string) error {
			delivered = code
			return nil
		})),
	)
	r := chi.NewRouter()
	New(svc, logger).RegisterVoter(r)

	voter := uuid.NewString()
	election := uuid.NewString()
	position := uuid.NewString()

	t.Run("departmental scope requires a position", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewVoterJSONRequest(t, http.MethodPost, "/v1/otp/issue", voter,
			map[string]string{"dept_election_id": election}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "missing_position_scope")
	})

	t.Run("issue then verify", func(t *testing.T) {
		scope := map[string]string{"dept_election_id": election, "current_position_id": position}
		rr := testutil.DoRequest(r, testutil.NewVoterJSONRequest(t, http.MethodPost, "/v1/otp/issue", voter, scope))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
		require.Len(t, delivered, 6)

		verify := map[string]string{"dept_election_id": election, "current_position_id": position, "code": delivered}
		rr = testutil.DoRequest(r, testutil.NewVoterJSONRequest(t, http.MethodPost, "/v1/otp/verify", voter, verify))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[VerifyResponse](t, rr)
		assert.True(t, resp.Verified)
		assert.Equal(t, "departmental:"+election+":"+position, resp.Scope)

		rr = testutil.DoRequest(r, testutil.NewVoterJSONRequest(t, http.MethodPost, "/v1/otp/verify", voter, verify))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "otp_already_consumed")
	})

	t.Run("code is required", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewVoterJSONRequest(t, http.MethodPost, "/v1/otp/verify", voter,
			map[string]string{"ssg_election_id": election}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}
