package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanSession_AddAndOrder(t *testing.T) {
	sess := NewLoanSession("M001")

	sess.Add(StagedLoan{ItemCode: "B0001", RuleID: 1})
	sess.Add(StagedLoan{ItemCode: "B0002", RuleID: 2})
	sess.Add(StagedLoan{ItemCode: "B0001", RuleID: 1, DueDate: time.Now()}) // re-add replaces

	assert.Equal(t, 2, sess.Len())
	staged := sess.Staged()
	assert.Equal(t, "B0001", staged[0].ItemCode)
	assert.Equal(t, "B0002", staged[1].ItemCode)
}

func TestLoanSession_RemoveIsIdempotent(t *testing.T) {
	sess := NewLoanSession("M001")
	sess.Add(StagedLoan{ItemCode: "B0001"})

	sess.Remove("B0001")
	assert.Equal(t, 0, sess.Len())

	// Removing an absent item is a no-op, not an error.
	sess.Remove("B0001")
	sess.Remove("never-staged")
	assert.Equal(t, 0, sess.Len())
}

func TestLoanSession_CountByRule(t *testing.T) {
	sess := NewLoanSession("M001")
	sess.Add(StagedLoan{ItemCode: "B0001", RuleID: 7})
	sess.Add(StagedLoan{ItemCode: "B0002", RuleID: 7})
	sess.Add(StagedLoan{ItemCode: "B0003", RuleID: 0})

	assert.Equal(t, 2, sess.CountByRule(7))
	// Rule id 0 counts the whole cart.
	assert.Equal(t, 3, sess.CountByRule(0))
	assert.Equal(t, 0, sess.CountByRule(99))
}

func TestLoanSession_Clear(t *testing.T) {
	sess := NewLoanSession("M001")
	sess.Add(StagedLoan{ItemCode: "B0001"})
	sess.TrackRenewal(42)

	sess.Clear()

	assert.Equal(t, 0, sess.Len())
	assert.Empty(t, sess.Reborrowed)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	first := store.Get("M001")
	again := store.Get("M001")
	assert.Same(t, first, again)

	assert.Nil(t, store.Peek("M002"))

	store.Drop("M001")
	assert.Nil(t, store.Peek("M001"))
}
