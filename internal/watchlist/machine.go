package watchlist

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vigil-trading/vigil/internal/solana"
)

// ---------------------------------------------------------------------------
// Watchlist State Machine
// One transition table owns every legal status move. Terminal states
// (rejected-permanent, dead, bombed, removed) have no edge back to watching.
// ---------------------------------------------------------------------------

var (
	// ErrInvalidTransition is returned for a (from, to) pair with no edge.
	ErrInvalidTransition = errors.New("invalid watchlist transition")

	// ErrCooldownActive is returned when a soft-rejected token is re-triaged
	// before its cool-down has elapsed.
	ErrCooldownActive = errors.New("re-triage cooldown still active")
)

// TransitionRecord is one append-only history row.
type TransitionRecord struct {
	ID     string        `json:"id"`
	Mint   solana.Pubkey `json:"mint"`
	From   Status        `json:"from"`
	To     Status        `json:"to"`
	Kind   RejectionKind `json:"kind,omitempty"`
	Reason string        `json:"reason"`
	At     time.Time     `json:"at"`
}

// edge identifies one allowed move in the table.
type edge struct {
	from Status
	to   Status
}

// transitions is the authoritative table. A (from, to) pair absent here is
// invalid no matter who asks, including manual operator overrides.
var transitions = map[edge]bool{
	{StatusPendingTriage, StatusWatching}: true,
	{StatusPendingTriage, StatusRejected}: true,
	{StatusPendingTriage, StatusDead}:     true,
	{StatusPendingTriage, StatusBombed}:   true,
	{StatusPendingTriage, StatusRemoved}:  true,

	{StatusWatching, StatusQualified}: true,
	{StatusWatching, StatusRejected}:  true,
	{StatusWatching, StatusDead}:      true,
	{StatusWatching, StatusBombed}:    true,
	{StatusWatching, StatusRemoved}:   true,

	// Qualified tokens can still die, get rugged, or be cleaned up.
	{StatusQualified, StatusRejected}: true,
	{StatusQualified, StatusDead}:     true,
	{StatusQualified, StatusBombed}:   true,
	{StatusQualified, StatusRemoved}:  true,

	// Soft rejection is recoverable; the kind check in Transition blocks
	// this edge for permanent rejections.
	{StatusRejected, StatusWatching}: true,
	{StatusRejected, StatusRemoved}:  true,
	{StatusRejected, StatusDead}:     true,
	{StatusRejected, StatusBombed}:   true,

	{StatusDead, StatusRemoved}:   true,
	{StatusBombed, StatusRemoved}: true,
}

// Machine applies transitions to entries. It is stateless apart from the
// re-triage cool-down; callers own persistence of the mutated entry and the
// returned history record.
type Machine struct {
	retriageCooldown time.Duration
}

// NewMachine creates the state machine.
func NewMachine(retriageCooldown time.Duration) *Machine {
	return &Machine{retriageCooldown: retriageCooldown}
}

// Transition moves the entry to target, recording kind (for rejections) and
// a human-readable reason. It is idempotent: asking for the status the entry
// already holds is a no-op returning (nil, nil), so a retried cycle never
// duplicates history.
func (m *Machine) Transition(e *Entry, target Status, kind RejectionKind, reason string, now time.Time) (*TransitionRecord, error) {
	if e.Status == target {
		// Escalation soft -> permanent is the one same-status move that is
		// a real transition; everything else is a retried no-op.
		escalation := target == StatusRejected && e.RejectionKind == RejectSoft && kind == RejectPermanent
		if !escalation {
			return nil, nil
		}
	} else if !transitions[edge{from: e.Status, to: target}] {
		return nil, fmt.Errorf("%w: %s -> %s (mint=%s)", ErrInvalidTransition, e.Status, target, e.Mint)
	}

	// Terminal states never re-enter the pipeline.
	if target == StatusWatching && e.Status == StatusRejected {
		if e.RejectionKind == RejectPermanent {
			return nil, fmt.Errorf("%w: permanent rejection is terminal (mint=%s)", ErrInvalidTransition, e.Mint)
		}
		if e.RejectedAt != nil && now.Sub(*e.RejectedAt) < m.retriageCooldown {
			return nil, fmt.Errorf("%w: until %s (mint=%s)",
				ErrCooldownActive, e.RejectedAt.Add(m.retriageCooldown).Format(time.RFC3339), e.Mint)
		}
	}

	if target == StatusRejected && kind == RejectNone {
		kind = RejectSoft
	}

	prev := e.Status
	e.Status = target

	switch target {
	case StatusQualified:
		ts := now
		e.QualifiedAt = &ts
		e.QualifyReason = reason
	case StatusRejected:
		ts := now
		e.RejectedAt = &ts
		e.RejectionKind = kind
		e.RejectReason = reason
	case StatusDead, StatusBombed:
		e.RejectReason = reason
	case StatusRemoved:
		ts := now
		e.RemovedAt = &ts
		e.RemoveReason = reason
	case StatusWatching:
		// Back from soft rejection: clear the recoverable rejection state
		// but keep sticky risk flags untouched.
		e.RejectionKind = RejectNone
		e.RejectReason = ""
		e.RejectedAt = nil
	}

	rec := &TransitionRecord{
		ID:     uuid.NewString(),
		Mint:   e.Mint,
		From:   prev,
		To:     target,
		Kind:   kind,
		Reason: reason,
		At:     now,
	}

	log.Info().
		Str("mint", string(e.Mint)).
		Str("from", string(prev)).
		Str("to", string(target)).
		Str("kind", string(kind)).
		Str("reason", reason).
		Msg("watchlist transition")

	return rec, nil
}
