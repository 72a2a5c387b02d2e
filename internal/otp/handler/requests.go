package handler

import (
	"strings"
	"time"

	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

// ScopeFields is the two-optional-election-fields wire shape of a scope.
type ScopeFields struct {
	SSGElectionID     string `json:"ssg_election_id,omitempty"`
	DeptElectionID    string `json:"dept_election_id,omitempty"`
	CurrentPositionID string `json:"current_position_id,omitempty"`
}

func (f *ScopeFields) normalize() {
	f.SSGElectionID = strings.TrimSpace(f.SSGElectionID)
	f.DeptElectionID = strings.TrimSpace(f.DeptElectionID)
	f.CurrentPositionID = strings.TrimSpace(f.CurrentPositionID)
}

func (f *ScopeFields) Scope() (id.Scope, error) {
	return id.ParseScope(f.SSGElectionID, f.DeptElectionID, f.CurrentPositionID)
}

type IssueRequest struct {
	ScopeFields
}

func (r *IssueRequest) Normalize() { r.normalize() }

func (r *IssueRequest) Validate() error {
	_, err := r.Scope()
	return err
}

type VerifyRequest struct {
	ScopeFields
	Code string `json:"code"`
}

func (r *VerifyRequest) Normalize() {
	r.normalize()
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyRequest) Validate() error {
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	_, err := r.Scope()
	return err
}

type IssueResponse struct {
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyResponse struct {
	Verified bool   `json:"verified"`
	Scope    string `json:"scope"`
}
