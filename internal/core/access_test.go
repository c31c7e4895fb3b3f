package core

import (
	"testing"

	"github.com/YumYum643/discord-clone/internal/auth"
	"github.com/YumYum643/discord-clone/internal/store"
)

func hashSecret(t *testing.T, secret string) string {
	t.Helper()

	hash, err := auth.HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return hash
}

func TestCanJoinPublicChannel(t *testing.T) {
	ch := &store.Channel{ID: 1, Name: "general", Kind: store.ChannelKindPublic}

	if denial := CanJoin(ch, 42, "", nil); denial != nil {
		t.Fatalf("public channel should always allow join, got %v", denial)
	}
	// A supplied secret on a channel without one is irrelevant.
	if denial := CanJoin(ch, 42, "whatever", nil); denial != nil {
		t.Fatalf("public channel should ignore supplied secret, got %v", denial)
	}
}

func TestCanJoinSecretChannel(t *testing.T) {
	ch := &store.Channel{
		ID:         2,
		Name:       "secret-room",
		Kind:       store.ChannelKindPublic,
		SecretHash: hashSecret(t, "pw123"),
	}

	if denial := CanJoin(ch, 42, "pw123", nil); denial != nil {
		t.Fatalf("correct secret should allow join, got %v", denial)
	}

	denial := CanJoin(ch, 42, "wrong", nil)
	if denial == nil || denial.Code != ErrCodeAccessDenied {
		t.Fatalf("wrong secret should be denied, got %v", denial)
	}

	// No secret supplied is a mismatch, not a distinct error.
	denial = CanJoin(ch, 42, "", nil)
	if denial == nil || denial.Code != ErrCodeAccessDenied {
		t.Fatalf("missing secret should be denied, got %v", denial)
	}
}

func TestCanJoinPrivateChannel(t *testing.T) {
	ch := &store.Channel{ID: 3, Name: "dm", Kind: store.ChannelKindPrivate}
	participants := []int64{1, 2}

	if denial := CanJoin(ch, 1, "", participants); denial != nil {
		t.Fatalf("participant should be allowed, got %v", denial)
	}

	denial := CanJoin(ch, 3, "", participants)
	if denial == nil || denial.Code != ErrCodeAccessDenied {
		t.Fatalf("non-participant should be denied, got %v", denial)
	}

	// The secret is never consulted for private channels.
	ch.SecretHash = hashSecret(t, "pw123")
	if denial := CanJoin(ch, 1, "", participants); denial != nil {
		t.Fatalf("participant should be allowed regardless of secret, got %v", denial)
	}
	denial = CanJoin(ch, 3, "pw123", participants)
	if denial == nil || denial.Code != ErrCodeAccessDenied {
		t.Fatalf("non-participant with secret should still be denied, got %v", denial)
	}
}
