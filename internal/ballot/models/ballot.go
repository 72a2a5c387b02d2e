// Package models defines the cast ballot and the receipt handed back to the
// voter.
package models

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zeebo/blake3"

	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

const maxSelectionsBytes = 64 << 10

// Ballot is immutable once stored. Selections are opaque to the engine.
type Ballot struct {
	ID         id.BallotID
	VoterID    id.VoterID
	Scope      id.Scope
	Selections json.RawMessage
	Digest     string
	CreatedAt  time.Time
}

// Key is the uniqueness key, "<voter>/<scope key>".
func (b *Ballot) Key() string {
	return GroupKey(b.VoterID, b.Scope)
}

func GroupKey(voterID id.VoterID, scope id.Scope) string {
	return voterID.String() + "/" + scope.Key()
}

// NewBallot assembles a ballot and seals it with its digest.
func NewBallot(ballotID id.BallotID, voterID id.VoterID, scope id.Scope, selections json.RawMessage, now time.Time) (*Ballot, error) {
	normalized, err := NormalizeSelections(selections)
	if err != nil {
		return nil, err
	}
	b := &Ballot{
		ID:         ballotID,
		VoterID:    voterID,
		Scope:      scope,
		Selections: normalized,
		CreatedAt:  now.UTC().Truncate(time.Microsecond),
	}
	b.Digest = b.ComputeDigest()
	return b, nil
}

// NormalizeSelections compacts the JSON so the digest does not depend on
// client whitespace. An empty value becomes [].
func NormalizeSelections(raw json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("[]"), nil
	}
	if len(raw) > maxSelectionsBytes {
		return nil, dErrors.New(dErrors.CodeValidation, "selections are too large")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "selections must be valid JSON")
	}
	return json.RawMessage(buf.Bytes()), nil
}

// ComputeDigest hashes the ballot's identity and content with BLAKE3. Each
// field is length-prefixed so concatenations cannot collide.
func (b *Ballot) ComputeDigest() string {
	h := blake3.New()
	for _, part := range [][]byte{
		[]byte(b.ID.String()),
		[]byte(b.VoterID.String()),
		[]byte(b.Scope.Key()),
		[]byte(b.CreatedAt.UTC().Format(time.RFC3339Nano)),
		b.Selections,
	} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Receipt is what a successful cast returns. The digest lets the voter
// check later that the stored ballot was not altered.
type Receipt struct {
	BallotID id.BallotID `json:"ballot_id"`
	Scope    id.Scope    `json:"scope"`
	CastAt   time.Time   `json:"cast_at"`
	Digest   string      `json:"digest"`
}

func (b *Ballot) Receipt() *Receipt {
	return &Receipt{BallotID: b.ID, Scope: b.Scope, CastAt: b.CreatedAt, Digest: b.Digest}
}

// Verify reports whether the stored digest still matches the content.
func (b *Ballot) Verify() bool {
	return b.Digest == b.ComputeDigest()
}
