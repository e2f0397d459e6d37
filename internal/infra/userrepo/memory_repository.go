package userrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yanqian/dermaai/internal/domain/auth"
)

type identityRef struct {
	provider string
	subject  string
}

// MemoryRepository keeps accounts in process memory. Data is lost on restart.
type MemoryRepository struct {
	mu         sync.RWMutex
	nextUserID int64
	nextLinkID int64
	accounts   map[int64]auth.User
	byEmail    map[string]int64
	links      map[identityRef]auth.Identity
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[int64]auth.User),
		byEmail:  make(map[string]int64),
		links:    make(map[identityRef]auth.Identity),
	}
}

func (r *MemoryRepository) Create(_ context.Context, in auth.NewUser) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[in.Email]; taken {
		return auth.User{}, auth.ErrEmailExists
	}
	r.nextUserID++
	account := auth.User{
		ID:           r.nextUserID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.accounts[account.ID] = account
	r.byEmail[account.Email] = account.ID
	return account, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return auth.User{}, false, nil
	}
	return r.accounts[id], true, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	return account, ok, nil
}

// UpdateProfile keeps emails unique across accounts.
func (r *MemoryRepository) UpdateProfile(_ context.Context, id int64, firstName, lastName, email string) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	if holder, taken := r.byEmail[email]; taken && holder != id {
		return auth.User{}, auth.ErrEmailExists
	}
	delete(r.byEmail, account.Email)
	account.FirstName, account.LastName, account.Email = firstName, lastName, email
	r.accounts[id] = account
	r.byEmail[email] = id
	return account, nil
}

func (r *MemoryRepository) GetIdentity(_ context.Context, provider, providerSubject string) (auth.Identity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[identityRef{provider: provider, subject: providerSubject}]
	return link, ok, nil
}

func (r *MemoryRepository) GetIdentityByUser(_ context.Context, userID int64, provider string) (auth.Identity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ref, link := range r.links {
		if ref.provider == provider && link.UserID == userID {
			return link, true, nil
		}
	}
	return auth.Identity{}, false, nil
}

// UpsertIdentity mirrors the SQL repositories: blank email and token values
// leave the stored ones untouched.
func (r *MemoryRepository) UpsertIdentity(_ context.Context, identity auth.Identity) (auth.Identity, error) {
	if identity.UserID == 0 {
		return auth.Identity{}, errors.New("identity needs a user id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ref := identityRef{provider: identity.Provider, subject: identity.ProviderSubject}
	now := time.Now().UTC()
	link, exists := r.links[ref]
	if !exists {
		r.nextLinkID++
		identity.ID = r.nextLinkID
		identity.CreatedAt = now
		link = identity
	}
	if identity.ProviderEmail != "" {
		link.ProviderEmail = identity.ProviderEmail
	}
	if identity.RefreshToken != "" {
		link.RefreshToken = identity.RefreshToken
	}
	link.UpdatedAt = now
	r.links[ref] = link
	return link, nil
}

var _ auth.Repository = (*MemoryRepository)(nil)
