package handler

import (
	"encoding/json"
	"strings"
	"time"

	"ballotguard/internal/ballot/models"
	id "ballotguard/pkg/domain"
)

type CastRequest struct {
	SSGElectionID     string          `json:"ssg_election_id,omitempty"`
	DeptElectionID    string          `json:"dept_election_id,omitempty"`
	CurrentPositionID string          `json:"current_position_id,omitempty"`
	Selections        json.RawMessage `json:"selections"`
}

func (r *CastRequest) Normalize() {
	r.SSGElectionID = strings.TrimSpace(r.SSGElectionID)
	r.DeptElectionID = strings.TrimSpace(r.DeptElectionID)
	r.CurrentPositionID = strings.TrimSpace(r.CurrentPositionID)
}

func (r *CastRequest) Validate() error {
	_, err := r.Scope()
	return err
}

// Scope applies the discrimination rules: a departmental election needs a
// position, an SSG election must not have one, and exactly one election is
// referenced.
func (r *CastRequest) Scope() (id.Scope, error) {
	return id.ParseScope(r.SSGElectionID, r.DeptElectionID, r.CurrentPositionID)
}

type ReceiptResponse struct {
	BallotID          string    `json:"ballot_id"`
	SSGElectionID     string    `json:"ssg_election_id,omitempty"`
	DeptElectionID    string    `json:"dept_election_id,omitempty"`
	CurrentPositionID string    `json:"current_position_id,omitempty"`
	CastAt            time.Time `json:"cast_at"`
	Digest            string    `json:"digest"`
}

func toResponse(r *models.Receipt) ReceiptResponse {
	out := ReceiptResponse{
		BallotID: r.BallotID.String(),
		CastAt:   r.CastAt,
		Digest:   r.Digest,
	}
	if position, ok := r.Scope.Position(); ok {
		out.DeptElectionID = r.Scope.Election().String()
		out.CurrentPositionID = position.String()
	} else {
		out.SSGElectionID = r.Scope.Election().String()
	}
	return out
}
