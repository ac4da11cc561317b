// Package sessiontest ties a browser session to a test's lifetime.
package sessiontest

import (
	"context"
	"testing"

	"github.com/johnjkle/traderev/internal/session"
)

// New acquires a session or fails the test, and releases it when the test ends.
func New(t testing.TB, mgr *session.Manager) *session.Session {
	t.Helper()
	s, err := mgr.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquiring browser session: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Release(context.Background()); err != nil {
			t.Errorf("releasing browser session: %v", err)
		}
	})
	return s
}
