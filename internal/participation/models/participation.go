package models

import (
	"time"

	id "ballotguard/pkg/domain"
)

// Participation records that a voter is registered for one election. Its
// uniqueness key is (VoterID, Election): at most one row per voter per
// election, whichever election type it is.
type Participation struct {
	ID        id.ParticipationID `json:"id"`
	VoterID   id.VoterID         `json:"voter_id"`
	Election  id.ElectionRef     `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
}

// Key is the uniqueness key, "<voter>/<type>:<election>".
func (p *Participation) Key() string {
	return GroupKey(p.VoterID, p.Election)
}

// GroupKey builds the uniqueness key for a voter and election.
func GroupKey(voterID id.VoterID, ref id.ElectionRef) string {
	return voterID.String() + "/" + ref.Key()
}
