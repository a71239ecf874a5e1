package repofakes

import (
	"context"
	"sync"

	interrors "github.com/recipevault/go-client-auth/internal/errors"
	"github.com/recipevault/go-client-auth/sessions"
)

var _ sessions.Repo = (*FakeRepo)(nil)

// FakeRepo is an in-memory sessions.Repo for tests. Per-key failures can be
// injected through SetErrs/GetErrs/DeleteErrs and SetManyErr.
type FakeRepo struct {
	values map[string]string
	lock   sync.RWMutex

	SetErrs    map[string]error
	GetErrs    map[string]error
	DeleteErrs map[string]error
	SetManyErr error
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		values:     make(map[string]string),
		SetErrs:    make(map[string]error),
		GetErrs:    make(map[string]error),
		DeleteErrs: make(map[string]error),
	}
}

func (fr *FakeRepo) Set(ctx context.Context, key, value string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if err := fr.SetErrs[key]; err != nil {
		return err
	}
	fr.values[key] = value
	return nil
}

func (fr *FakeRepo) SetMany(ctx context.Context, values map[string]string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if fr.SetManyErr != nil {
		return fr.SetManyErr
	}
	for key := range values {
		if err := fr.SetErrs[key]; err != nil {
			return err
		}
	}
	for key, value := range values {
		fr.values[key] = value
	}
	return nil
}

func (fr *FakeRepo) Get(ctx context.Context, key string) (string, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	if err := fr.GetErrs[key]; err != nil {
		return "", err
	}
	value, ok := fr.values[key]
	if !ok {
		return "", interrors.ErrNotFound
	}
	return value, nil
}

func (fr *FakeRepo) Delete(ctx context.Context, key string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if err := fr.DeleteErrs[key]; err != nil {
		return err
	}
	delete(fr.values, key)
	return nil
}

// Has reports whether key currently holds a value. Test helper.
func (fr *FakeRepo) Has(key string) bool {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	_, ok := fr.values[key]
	return ok
}

// Seed writes a raw value without going through Set error injection.
func (fr *FakeRepo) Seed(key, value string) {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	fr.values[key] = value
}
