package core

import (
	"context"
	"testing"
	"time"

	"github.com/YumYum643/discord-clone/internal/store"
	"github.com/YumYum643/discord-clone/internal/store/sqlite"
)

// newTestStore opens an in-memory store. The schema seeds the public
// channels "general" (id 1) and "random" (id 2).
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// newTestUser persists a user so history joins resolve.
func newTestUser(t *testing.T, st store.Store, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, username+"@example.com", "hash", "https://example.com/"+username+".svg")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent asserts that no event of the given kind arrives within the
// grace window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
