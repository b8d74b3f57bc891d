package snapshot

import (
	"context"
	stderrors "errors"

	"github.com/vango-dev/keyed/internal/errors"
)

var errStoreClosed = stderrors.New("snapshot: store is closed")

// Store persists key lists by session ID.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores keys under id, replacing any previous list.
	Save(ctx context.Context, id string, keys []string) error

	// Load returns the keys stored under id. A missing session yields an
	// E270 error; use IsNotFound to test for it.
	Load(ctx context.Context, id string) ([]string, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.HasCode(err, "E270")
}

func notFound(id string) error {
	return errors.New("E270").WithDetailf("session %q", id)
}

func failure(op, id string, err error) error {
	return errors.New("E271").WithDetailf("%s session %q", op, id).Wrap(err)
}
