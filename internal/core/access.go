package core

import (
	"slices"

	"github.com/YumYum643/discord-clone/internal/auth"
	"github.com/YumYum643/discord-clone/internal/store"
)

// CanJoin decides whether a user may join a channel. It is a pure decision
// over the provided channel state: no side effects, no store reads.
//
//   - Private channel: allowed iff the user is in the participant set; the
//     secret is not consulted.
//   - Channel with a secret: allowed iff the supplied secret matches the
//     stored hash. A missing supplied secret is a mismatch, not a distinct
//     error.
//   - Public channel with no secret: always allowed.
//
// A nil return means allowed; otherwise the denial reason is returned.
func CanJoin(ch *store.Channel, userID int64, suppliedSecret string, participants []int64) *CoreError {
	if ch.Kind == store.ChannelKindPrivate {
		if !slices.Contains(participants, userID) {
			return coreError(ErrCodeAccessDenied, "not a participant of this channel")
		}
		return nil
	}

	if ch.HasSecret() {
		if !auth.CompareSecret(ch.SecretHash, suppliedSecret) {
			return coreError(ErrCodeAccessDenied, "incorrect channel secret")
		}
	}

	return nil
}
