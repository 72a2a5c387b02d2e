// Package models holds the reconciliation vocabulary shared between the
// reconciler and the stores it repairs.
package models

import (
	"sort"
	"time"
)

// Row is one stored record of a scope group.
type Row struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is the set of rows sharing one uniqueness key. Only groups with
// more than one row are duplicates.
type Group struct {
	Key  string `json:"key"`
	Rows []Row  `json:"rows"`
}

// IsDuplicate reports whether the group violates uniqueness.
func (g Group) IsDuplicate() bool { return len(g.Rows) > 1 }

// newer orders rows by creation time, then by ID, so every run picks the
// same keeper even when timestamps collide.
func newer(a, b Row) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Partition splits the group into the row to keep (the newest) and the rows
// to remove, oldest first. A group of one or zero rows removes nothing.
func (g Group) Partition() (keep Row, remove []Row) {
	if len(g.Rows) == 0 {
		return Row{}, nil
	}
	rows := append([]Row(nil), g.Rows...)
	sort.Slice(rows, func(i, j int) bool { return newer(rows[j], rows[i]) })
	keep = rows[len(rows)-1]
	return keep, rows[:len(rows)-1]
}

// RemovalIDs returns the IDs of rows.
func RemovalIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// Duplicates builds the groups with more than one row, ordered by key.
func Duplicates(byKey map[string][]Row) []Group {
	var groups []Group
	for key, rows := range byKey {
		if len(rows) > 1 {
			groups = append(groups, Group{Key: key, Rows: rows})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}
