package handler

import (
	"strings"
	"time"

	"ballotguard/internal/election/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

type CreateElectionRequest struct {
	ElectionType    string `json:"election_type"`
	Title           string `json:"title"`
	Department      string `json:"department,omitempty"`
	ElectionDate    string `json:"election_date"`
	BallotOpenTime  string `json:"ballot_open_time"`
	BallotCloseTime string `json:"ballot_close_time"`
}

func (r *CreateElectionRequest) Normalize() {
	r.ElectionType = strings.ToLower(strings.TrimSpace(r.ElectionType))
	r.Title = strings.TrimSpace(r.Title)
	r.Department = strings.TrimSpace(r.Department)
	r.ElectionDate = strings.TrimSpace(r.ElectionDate)
	r.BallotOpenTime = strings.TrimSpace(r.BallotOpenTime)
	r.BallotCloseTime = strings.TrimSpace(r.BallotCloseTime)
}

func (r *CreateElectionRequest) Validate() error {
	if _, err := id.ParseElectionType(r.ElectionType); err != nil {
		return err
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if _, err := time.Parse(time.DateOnly, r.ElectionDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "election_date must be YYYY-MM-DD")
	}
	if r.BallotOpenTime == "" || r.BallotCloseTime == "" {
		return dErrors.New(dErrors.CodeValidation, "ballot_open_time and ballot_close_time are required")
	}
	return nil
}

// ToNewElection converts a validated request.
func (r *CreateElectionRequest) ToNewElection() models.NewElection {
	date, _ := time.Parse(time.DateOnly, r.ElectionDate)
	return models.NewElection{
		Type:       id.ElectionType(r.ElectionType),
		Title:      r.Title,
		Department: r.Department,
		Date:       date,
		OpenTime:   r.BallotOpenTime,
		CloseTime:  r.BallotCloseTime,
	}
}

type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

func (r *AdvanceStatusRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

func (r *AdvanceStatusRequest) Validate() error {
	_, err := models.ParseStatus(r.Status)
	return err
}

type ElectionResponse struct {
	ID              string    `json:"id"`
	ElectionType    string    `json:"election_type"`
	Title           string    `json:"title"`
	Department      string    `json:"department,omitempty"`
	Status          string    `json:"status"`
	ElectionDate    string    `json:"election_date"`
	BallotOpenTime  string    `json:"ballot_open_time"`
	BallotCloseTime string    `json:"ballot_close_time"`
	WindowOpensAt   time.Time `json:"window_opens_at"`
	WindowClosesAt  time.Time `json:"window_closes_at"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(e *models.Election, loc *time.Location) ElectionResponse {
	open, closeAt := e.Window(loc)
	return ElectionResponse{
		ID:              e.ID.String(),
		ElectionType:    string(e.Type),
		Title:           e.Title,
		Department:      e.Department,
		Status:          string(e.Status),
		ElectionDate:    e.Date.Format(time.DateOnly),
		BallotOpenTime:  models.FormatTimeOfDay(e.OpenOffset),
		BallotCloseTime: models.FormatTimeOfDay(e.CloseOffset),
		WindowOpensAt:   open,
		WindowClosesAt:  closeAt,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

type OpenResponse struct {
	ElectionID string `json:"election_id"`
	Open       bool   `json:"open"`
}
