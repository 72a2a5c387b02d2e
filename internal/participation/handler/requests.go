package handler

import (
	"strings"
	"time"

	"ballotguard/internal/participation/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

type RegisterRequest struct {
	VoterID        string `json:"voter_id"`
	SSGElectionID  string `json:"ssg_election_id,omitempty"`
	DeptElectionID string `json:"dept_election_id,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.VoterID = strings.TrimSpace(r.VoterID)
	r.SSGElectionID = strings.TrimSpace(r.SSGElectionID)
	r.DeptElectionID = strings.TrimSpace(r.DeptElectionID)
}

func (r *RegisterRequest) Validate() error {
	if r.VoterID == "" {
		return dErrors.New(dErrors.CodeValidation, "voter_id is required")
	}
	if _, err := id.ParseVoterID(r.VoterID); err != nil {
		return err
	}
	_, err := r.ElectionRef()
	return err
}

// ElectionRef resolves the two mutually exclusive election fields.
func (r *RegisterRequest) ElectionRef() (id.ElectionRef, error) {
	switch {
	case r.SSGElectionID != "" && r.DeptElectionID != "":
		return id.ElectionRef{}, dErrors.New(dErrors.CodeScopeMismatch, "participation cannot reference both an ssg and a departmental election")
	case r.SSGElectionID != "":
		electionID, err := id.ParseElectionID(r.SSGElectionID)
		if err != nil {
			return id.ElectionRef{}, err
		}
		return id.ElectionRef{Type: id.ElectionTypeSSG, ID: electionID}, nil
	case r.DeptElectionID != "":
		electionID, err := id.ParseElectionID(r.DeptElectionID)
		if err != nil {
			return id.ElectionRef{}, err
		}
		return id.ElectionRef{Type: id.ElectionTypeDepartmental, ID: electionID}, nil
	default:
		return id.ElectionRef{}, dErrors.New(dErrors.CodeInvalidScope, "an election reference is required")
	}
}

type ParticipationResponse struct {
	ID             string    `json:"id"`
	VoterID        string    `json:"voter_id"`
	SSGElectionID  string    `json:"ssg_election_id,omitempty"`
	DeptElectionID string    `json:"dept_election_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type EligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

func toResponse(p *models.Participation) ParticipationResponse {
	out := ParticipationResponse{
		ID:        p.ID.String(),
		VoterID:   p.VoterID.String(),
		CreatedAt: p.CreatedAt,
	}
	if p.Election.Type == id.ElectionTypeSSG {
		out.SSGElectionID = p.Election.ID.String()
	} else {
		out.DeptElectionID = p.Election.ID.String()
	}
	return out
}
