package models

import "time"

// GroupReport records what happened to one duplicate group.
type GroupReport struct {
	Key     string `json:"key"`
	Kept    Row    `json:"kept"`
	Removed []Row  `json:"removed"`
	// RowsRemoved is what the store actually deleted; it can be lower than
	// len(Removed) when rows vanished between scan and delete.
	RowsRemoved int64 `json:"rows_removed"`
}

// TargetReport summarizes one table.
type TargetReport struct {
	Name                 string        `json:"name"`
	DuplicateGroups      int           `json:"duplicate_groups"`
	RowsRemoved          int64         `json:"rows_removed"`
	Groups               []GroupReport `json:"groups,omitempty"`
	ConstraintsInstalled bool          `json:"constraints_installed"`
	Error                string        `json:"error,omitempty"`
}

// Report is the result of one reconciliation run.
type Report struct {
	RunID      string         `json:"run_id"`
	DryRun     bool           `json:"dry_run"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Targets    []TargetReport `json:"targets"`
	Error      string         `json:"error,omitempty"`
}

// RowsRemoved totals removals across targets.
func (r *Report) RowsRemoved() int64 {
	var n int64
	for _, t := range r.Targets {
		n += t.RowsRemoved
	}
	return n
}

// Target returns the report for the named target.
func (r *Report) Target(name string) (TargetReport, bool) {
	for _, t := range r.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return TargetReport{}, false
}
