package testutil

import (
	"net/http"

	id "ballotguard/pkg/domain"
	"ballotguard/pkg/requestcontext"
)

// WithVoterID authenticates req the way the voter middleware would. An
// unparsable voterID leaves the request anonymous, which is how tests
// exercise the unauthorized paths.
func WithVoterID(req *http.Request, voterID string) *http.Request {
	parsed, err := id.ParseVoterID(voterID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithVoterID(req.Context(), parsed))
}
