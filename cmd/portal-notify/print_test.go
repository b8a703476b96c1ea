package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/store"
)

func TestPrintView(t *testing.T) {
	var buf bytes.Buffer
	printView(&buf, store.View{})
	assert.Contains(t, buf.String(), "Unread: 0")
	assert.Contains(t, buf.String(), "No notifications yet.")

	buf.Reset()
	printView(&buf, store.View{
		Items: []model.Notification{{
			ID:        model.ConnectionID("n1"),
			Category:  model.CategoryApplicationStatusUpdated,
			Message:   "Your application status was updated.",
			CreatedAt: time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
		}},
		UnreadConnections: 120,
	})
	out := buf.String()
	assert.Contains(t, out, "Unread: 99+ (connections 120, messages 0)")
	assert.Contains(t, out, "application")
	assert.Contains(t, out, "Your application status was updated.")
	assert.Contains(t, out, model.DefaultTargetPath)
}

func TestPrintRunsAndAcks(t *testing.T) {
	start := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	printRuns(&buf, []journal.SyncRun{{
		Domain:      model.DomainMessage,
		Silent:      true,
		Outcome:     journal.OutcomeFailed,
		Error:       "connection refused",
		StartedAt:   start,
		FinishedAt:  start.Add(250 * time.Millisecond),
		RecordCount: 0,
	}})
	out := buf.String()
	assert.Contains(t, out, "silent")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "250ms")
	assert.Contains(t, out, "connection refused")

	buf.Reset()
	printAcks(&buf, []journal.Ack{{
		NotificationID: "message:p1",
		Action:         journal.ActionRead,
		Outcome:        journal.OutcomeOK,
		CreatedAt:      start,
	}})
	assert.Contains(t, buf.String(), "message:p1")
	assert.Contains(t, buf.String(), "read")
}
