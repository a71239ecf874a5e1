package sessions

import "context"

// Repo is the durable key-value boundary under the session store. Values are
// durable across process restarts. Get returns errors.ErrNotFound when the
// key is absent; Delete of an absent key is a no-op.
type Repo interface {
	Set(ctx context.Context, key, value string) error
	// SetMany writes all pairs as a single transactional unit: either every
	// key is written or none is.
	SetMany(ctx context.Context, values map[string]string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
