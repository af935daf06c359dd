package refreshrepofake

import (
	"sync"

	qaerrors "github.com/jrsteele09/qa-console/internal/errors"
	"github.com/jrsteele09/qa-console/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo keeps the reference backend's refresh tokens in memory, at most one
// live token per user
type FakeRefreshTokenRepo struct {
	lock    sync.RWMutex
	byToken map[string]*refresh.StoredRefreshToken
	byUser  map[string]string
}

func NewFakeRefreshTokenRepo() refresh.Repo {
	return &FakeRefreshTokenRepo{
		byToken: map[string]*refresh.StoredRefreshToken{},
		byUser:  map[string]string{},
	}
}

func (r *FakeRefreshTokenRepo) Upsert(rt *refresh.StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored := *rt
	r.byToken[rt.Token] = &stored
	r.byUser[rt.UserID] = rt.Token
	return nil
}

func (r *FakeRefreshTokenRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rt, ok := r.byToken[token]
	if !ok {
		return qaerrors.ErrInvalidRefreshToken
	}
	if r.byUser[rt.UserID] == token {
		delete(r.byUser, rt.UserID)
	}
	delete(r.byToken, token)
	return nil
}

func (r *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.byToken[token]
	if !ok {
		return nil, qaerrors.ErrInvalidRefreshToken
	}
	stored := *rt
	return &stored, nil
}

func (r *FakeRefreshTokenRepo) GetByUserID(userID string) (*refresh.StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	token, ok := r.byUser[userID]
	if !ok {
		return nil, qaerrors.ErrInvalidRefreshToken
	}
	stored := *r.byToken[token]
	return &stored, nil
}
