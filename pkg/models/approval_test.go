package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func decision(user string, approved bool) Decision {
	return Decision{UserID: user, Approved: approved, DecidedAt: time.Now().UTC()}
}

func TestRecord_SingleApprovalByDefault(t *testing.T) {
	request := &ApprovalRequest{ID: "apr-1", Status: ApprovalStatusPending}

	status := request.Record(decision("alice", true))

	assert.Equal(t, ApprovalStatusApproved, status)
	assert.Len(t, request.Decisions, 1)
}

func TestRecord_SingleRejectIsTerminal(t *testing.T) {
	request := &ApprovalRequest{
		ID:                "apr-1",
		Status:            ApprovalStatusPending,
		RequiredApprovals: 3,
	}

	request.Record(decision("alice", true))
	status := request.Record(decision("bob", false))

	assert.Equal(t, ApprovalStatusRejected, status)
	assert.True(t, status.IsTerminal())
}

func TestRecord_WaitsForRequiredApprovals(t *testing.T) {
	request := &ApprovalRequest{
		ID:                "apr-1",
		Status:            ApprovalStatusPending,
		RequiredApprovals: 2,
	}

	status := request.Record(decision("alice", true))
	assert.Equal(t, ApprovalStatusPending, status)
	assert.False(t, status.IsTerminal())

	status = request.Record(decision("bob", true))
	assert.Equal(t, ApprovalStatusApproved, status)
}

func TestIsExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	pending := &ApprovalRequest{Status: ApprovalStatusPending, ExpiresAt: &past}
	assert.True(t, pending.IsExpired(now))

	notYet := &ApprovalRequest{Status: ApprovalStatusPending, ExpiresAt: &future}
	assert.False(t, notYet.IsExpired(now))

	noDeadline := &ApprovalRequest{Status: ApprovalStatusPending}
	assert.False(t, noDeadline.IsExpired(now))

	decided := &ApprovalRequest{Status: ApprovalStatusApproved, ExpiresAt: &past}
	assert.False(t, decided.IsExpired(now))
}
