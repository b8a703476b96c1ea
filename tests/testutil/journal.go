package testutil

import (
	"testing"

	"github.com/nhle/portal-notify/internal/journal"
)

// NewTestJournal creates an in-memory Journal with all migrations applied.
// It automatically closes the journal when the test completes.
func NewTestJournal(t *testing.T) *journal.Journal {
	t.Helper()

	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test journal: %v", err)
	}

	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("closing test journal: %v", err)
		}
	})

	return j
}
