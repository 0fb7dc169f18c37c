package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/laundryhub/laundryhub-auth/domain"
)

// fakeAccountRepo is an in-memory AccountRepository with write
// counters so resolver tests can assert which outcomes touch storage.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account

	createCalls  int
	setLinkCalls int
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls + r.setLinkCalls
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return domain.ErrDuplicate
		}
	}
	if account.ID == "" {
		account.ID = "acc-" + account.Username
	}
	r.createCalls++
	r.accounts[account.ID] = account
	return nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAccountRepo) FindByProviderID(_ context.Context, provider, providerID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if link, ok := a.SocialAccounts[provider]; ok && link.ProviderID == providerID {
			return a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAccountRepo) SetSocialLink(_ context.Context, accountID, provider string, link domain.SocialAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if a.SocialAccounts == nil {
		a.SocialAccounts = make(map[string]domain.SocialAccount)
	}
	r.setLinkCalls++
	a.SocialAccounts[provider] = link
	return nil
}

func (r *fakeAccountRepo) TouchLogin(_ context.Context, accountID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[accountID]; ok {
		a.LastLoginAt = &at
		return nil
	}
	return domain.ErrNotFound
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, accountID, passwordHash string, clearForceChange bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = passwordHash
	if clearForceChange {
		a.RequirePasswordChange = false
	}
	return nil
}

// fakeRefreshRepo implements single-use consume semantics in memory.
type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (r *fakeRefreshRepo) Store(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return domain.ErrDuplicate
	}
	cp := *token
	r.tokens[token.Token] = &cp
	return nil
}

func (r *fakeRefreshRepo) Consume(_ context.Context, token, ip string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tokens[token]
	if !ok || rec.Revoked != nil || !rec.ExpiryDate.After(time.Now().UTC()) {
		return nil, domain.ErrNotFound
	}
	before := *rec
	now := time.Now().UTC()
	rec.Revoked = &now
	rec.RevokedByIP = ip
	return &before, nil
}

func (r *fakeRefreshRepo) MarkReplaced(_ context.Context, token, successor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tokens[token]; ok {
		rec.ReplacedByToken = successor
	}
	return nil
}

func (r *fakeRefreshRepo) Revoke(_ context.Context, token, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tokens[token]; ok && rec.Revoked == nil {
		now := time.Now().UTC()
		rec.Revoked = &now
		rec.RevokedByIP = ip
	}
	return nil
}

type fakeBlacklist struct {
	mu      sync.Mutex
	entries map[string]*domain.BlacklistEntry
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{entries: make(map[string]*domain.BlacklistEntry)}
}

func (b *fakeBlacklist) Add(_ context.Context, entry *domain.BlacklistEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[entry.Token]; !ok {
		b.entries[entry.Token] = entry
	}
	return nil
}

func (b *fakeBlacklist) IsBlacklisted(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[token]
	return ok, nil
}

type fakeMailbox struct {
	mu      sync.Mutex
	entries map[string]*domain.MailboxEntry
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{entries: make(map[string]*domain.MailboxEntry)}
}

func (m *fakeMailbox) Create(_ context.Context, entry *domain.MailboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.SessionID]; ok {
		return domain.ErrDuplicate
	}
	m.entries[entry.SessionID] = entry
	return nil
}

func (m *fakeMailbox) Consume(_ context.Context, sessionID string) (*domain.MailboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.entries, sessionID)
	return entry, nil
}

// fakeRevocationStore never caches, forcing every check to storage.
type fakeRevocationStore struct{}

func (fakeRevocationStore) SetRevoked(context.Context, string, time.Time) error { return nil }
func (fakeRevocationStore) SetMiss(context.Context, string) error               { return nil }
func (fakeRevocationStore) Get(context.Context, string) (bool, bool)            { return false, false }

// fakeHasher keeps tests fast: the "hash" is a reversible prefix.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(hashedPassword, password string) error {
	if hashedPassword == "hashed:"+password {
		return nil
	}
	return errors.New("password mismatch")
}

type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	return ciphertext[len("enc:"):], nil
}

type fakeMailer struct {
	mu      sync.Mutex
	welcome []string
	resets  []string
}

func (m *fakeMailer) SendWelcome(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, email)
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, email)
	return nil
}
