package watchlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-trading/vigil/internal/providers"
)

func newTestEntry(status Status) *Entry {
	e := NewEntry(providers.TokenLaunch{
		Mint:    "mint-1",
		Symbol:  "TST",
		Creator: "creator-1",
	}, time.Now().Add(-time.Hour))
	e.Status = status
	return e
}

func TestTransition_HappyPath(t *testing.T) {
	m := NewMachine(10 * time.Minute)
	e := newTestEntry(StatusPendingTriage)
	now := time.Now()

	rec, err := m.Transition(e, StatusWatching, RejectNone, "initial triage passed", now)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusPendingTriage, rec.From)
	assert.Equal(t, StatusWatching, rec.To)

	rec, err = m.Transition(e, StatusQualified, RejectNone, "score 82.1 above threshold", now)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusQualified, e.Status)
	require.NotNil(t, e.QualifiedAt)
	assert.Equal(t, "score 82.1 above threshold", e.QualifyReason)
	assert.NotEmpty(t, rec.ID)
}

func TestTransition_IdempotentSameTarget(t *testing.T) {
	m := NewMachine(10 * time.Minute)
	e := newTestEntry(StatusWatching)
	now := time.Now()

	rec, err := m.Transition(e, StatusQualified, RejectNone, "qualified", now)
	require.NoError(t, err)
	require.NotNil(t, rec)
	firstQualifiedAt := *e.QualifiedAt

	// Retried cycle applies the same transition again: no record, no change.
	rec, err = m.Transition(e, StatusQualified, RejectNone, "qualified", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, firstQualifiedAt, *e.QualifiedAt)
}

func TestTransition_TerminalStatesNeverReenter(t *testing.T) {
	m := NewMachine(0)
	now := time.Now()

	for _, from := range []Status{StatusDead, StatusBombed} {
		e := newTestEntry(from)
		_, err := m.Transition(e, StatusWatching, RejectNone, "resurrect", now)
		assert.ErrorIs(t, err, ErrInvalidTransition, "from=%s", from)
	}

	e := newTestEntry(StatusRejected)
	e.RejectionKind = RejectPermanent
	_, err := m.Transition(e, StatusWatching, RejectNone, "resurrect", now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_SoftRejectReentry(t *testing.T) {
	m := NewMachine(10 * time.Minute)
	e := newTestEntry(StatusWatching)
	now := time.Now()

	_, err := m.Transition(e, StatusRejected, RejectSoft, "score 41.0 below threshold", now)
	require.NoError(t, err)
	assert.Equal(t, RejectSoft, e.RejectionKind)

	// Inside the cool-down: blocked.
	_, err = m.Transition(e, StatusWatching, RejectNone, "re-triage", now.Add(5*time.Minute))
	assert.ErrorIs(t, err, ErrCooldownActive)

	// After the cool-down: allowed, rejection state cleared.
	rec, err := m.Transition(e, StatusWatching, RejectNone, "re-triage", now.Add(11*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusWatching, e.Status)
	assert.Equal(t, RejectNone, e.RejectionKind)
	assert.Nil(t, e.RejectedAt)
}

func TestTransition_SoftToPermanentEscalation(t *testing.T) {
	m := NewMachine(10 * time.Minute)
	e := newTestEntry(StatusWatching)
	now := time.Now()

	_, err := m.Transition(e, StatusRejected, RejectSoft, "weak score", now)
	require.NoError(t, err)

	rec, err := m.Transition(e, StatusRejected, RejectPermanent, "dev full exit", now.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, RejectPermanent, e.RejectionKind)
	assert.Equal(t, "dev full exit", e.RejectReason)

	// The reverse de-escalation is a no-op.
	rec, err = m.Transition(e, StatusRejected, RejectSoft, "nevermind", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, RejectPermanent, e.RejectionKind)
}

func TestTransition_QualifiedCanStillDie(t *testing.T) {
	m := NewMachine(0)
	e := newTestEntry(StatusQualified)
	now := time.Now()

	rec, err := m.Transition(e, StatusBombed, RejectNone, "liquidity collapsed 85% in one check", now)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusBombed, e.Status)
	assert.Contains(t, e.RejectReason, "collapsed")
}

func TestTransition_RemovedFromAnywhere(t *testing.T) {
	m := NewMachine(0)
	now := time.Now()
	for _, from := range []Status{StatusPendingTriage, StatusWatching, StatusQualified, StatusRejected, StatusDead, StatusBombed} {
		e := newTestEntry(from)
		rec, err := m.Transition(e, StatusRemoved, RejectNone, "admin cleanup", now)
		require.NoError(t, err, "from=%s", from)
		require.NotNil(t, rec)
		assert.Equal(t, StatusRemoved, e.Status)
		require.NotNil(t, e.RemovedAt)
	}
}

func TestEntry_StickyDevFlags(t *testing.T) {
	e := newTestEntry(StatusWatching)
	e.MarkDevSold(0.0)
	e.MarkDevLaunchedNew()

	assert.True(t, e.Risk.DevSold)
	assert.True(t, e.Risk.DevLaunchedNew)
}

func TestEntry_ActiveStatuses(t *testing.T) {
	assert.True(t, newTestEntry(StatusPendingTriage).IsActive())
	assert.True(t, newTestEntry(StatusWatching).IsActive())
	assert.True(t, newTestEntry(StatusQualified).IsActive())
	assert.False(t, newTestEntry(StatusDead).IsActive())
	assert.False(t, newTestEntry(StatusRemoved).IsActive())
}

func TestEntry_RecordMetricsRotation(t *testing.T) {
	e := newTestEntry(StatusWatching)
	first := &providers.TokenMetrics{Mint: e.Mint, Holders: 100}
	second := &providers.TokenMetrics{Mint: e.Mint, Holders: 150}

	e.RecordMetrics(first)
	assert.Nil(t, e.PrevMetrics)
	e.RecordMetrics(second)
	assert.Equal(t, first, e.PrevMetrics)
	assert.Equal(t, second, e.Metrics)
}
