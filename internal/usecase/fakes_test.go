package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/repository"
)

type storedAccount struct {
	account        domain.Account
	passwordHash   string
	refreshHash    string
	resetHash      string
	resetExpiresAt time.Time
}

// memoryAccounts is an in-memory AccountRepository with the same matching
// rules as the SQL implementation.
type memoryAccounts struct {
	mu   sync.Mutex
	rows map[string]*storedAccount

	failWith error
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{rows: map[string]*storedAccount{}}
}

func (m *memoryAccounts) seed(account domain.Account, passwordHash string) *storedAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := &storedAccount{account: account, passwordHash: passwordHash}
	m.rows[account.ID] = row
	return row
}

func (m *memoryAccounts) row(id string) *storedAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memoryAccounts) Create(_ context.Context, account domain.Account, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, row := range m.rows {
		if row.account.Email == account.Email || row.account.Username == account.Username {
			return repository.ErrConflict
		}
	}
	m.rows[account.ID] = &storedAccount{account: account, passwordHash: passwordHash}
	return nil
}

func (m *memoryAccounts) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.account.Email == email || row.account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account := row.account
	return &account, nil
}

func (m *memoryAccounts) find(match func(*storedAccount) bool) *storedAccount {
	for _, row := range m.rows {
		if match(row) {
			return row
		}
	}
	return nil
}

func (m *memoryAccounts) GetActiveByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(func(r *storedAccount) bool { return r.account.IsActive && r.account.Email == email })
	if row == nil {
		return nil, repository.ErrNotFound
	}
	account := row.account
	return &account, nil
}

func (m *memoryAccounts) GetCredentialsByEmail(_ context.Context, email string) (*domain.AccountCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(func(r *storedAccount) bool { return r.account.IsActive && r.account.Email == email })
	if row == nil {
		return nil, repository.ErrNotFound
	}
	return &domain.AccountCredentials{Account: row.account, PasswordHash: row.passwordHash}, nil
}

func (m *memoryAccounts) GetActiveByRefreshToken(_ context.Context, tokenHash string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(func(r *storedAccount) bool {
		return r.account.IsActive && r.refreshHash != "" && r.refreshHash == tokenHash
	})
	if row == nil {
		return nil, repository.ErrNotFound
	}
	account := row.account
	return &account, nil
}

func (m *memoryAccounts) SetRefreshToken(_ context.Context, id, tokenHash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.refreshHash = tokenHash
	return nil
}

func (m *memoryAccounts) ClearRefreshToken(_ context.Context, tokenHash string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(func(r *storedAccount) bool { return r.refreshHash != "" && r.refreshHash == tokenHash })
	if row == nil {
		return false, nil
	}
	row.refreshHash = ""
	return true, nil
}

func (m *memoryAccounts) SetResetToken(_ context.Context, id, tokenHash string, expiresAt, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.resetHash = tokenHash
	row.resetExpiresAt = expiresAt
	return nil
}

func (m *memoryAccounts) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, at time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(func(r *storedAccount) bool {
		return r.resetHash != "" && r.resetHash == tokenHash && r.resetExpiresAt.After(at)
	})
	if row == nil {
		return nil, repository.ErrNotFound
	}
	row.passwordHash = passwordHash
	row.resetHash = ""
	row.resetExpiresAt = time.Time{}
	row.refreshHash = ""
	account := row.account
	return &account, nil
}

func (m *memoryAccounts) UpdateProfile(_ context.Context, id string, update domain.ProfileUpdate, at time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range m.rows {
		if otherID == id {
			continue
		}
		if update.Username != nil && other.account.Username == *update.Username {
			return nil, repository.ErrConflict
		}
		if update.Email != nil && other.account.Email == *update.Email {
			return nil, repository.ErrConflict
		}
	}
	if update.Username != nil {
		row.account.Username = *update.Username
	}
	if update.Email != nil {
		row.account.Email = *update.Email
	}
	if update.ProfilePicture != nil {
		row.account.ProfilePicture = *update.ProfilePicture
	}
	if update.Bio != nil {
		row.account.Bio = *update.Bio
	}
	row.account.UpdatedAt = at
	account := row.account
	return &account, nil
}

func (m *memoryAccounts) MergeSettings(_ context.Context, id string, settings domain.Settings, at time.Time) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if row.account.Settings == nil {
		row.account.Settings = domain.Settings{}
	}
	for k, v := range settings {
		row.account.Settings[k] = v
	}
	row.account.UpdatedAt = at
	merged := domain.Settings{}
	for k, v := range row.account.Settings {
		merged[k] = v
	}
	return merged, nil
}

func (m *memoryAccounts) SetActive(_ context.Context, id string, active bool, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.account.IsActive = active
	if !active {
		row.refreshHash = ""
	}
	return nil
}

func (m *memoryAccounts) SetRole(_ context.Context, id string, role domain.Role, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.account.Role = role
	return nil
}

func (m *memoryAccounts) List(_ context.Context, filter port.AccountFilter) ([]domain.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Account
	for _, row := range m.rows {
		if filter.Role != nil && row.account.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && row.account.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, row.account)
	}
	total := len(matched)
	if filter.Offset >= total {
		return []domain.Account{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// prefixHasher marks hashes with a fixed prefix so tests can read them back.
type prefixHasher struct{}

func (prefixHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (prefixHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type stubTokens struct {
	now      time.Time
	refresh  []string
	issued   int
	lastRole string
}

func (s *stubTokens) IssueAccess(subjectID, role string) (string, time.Time, error) {
	s.issued++
	s.lastRole = role
	return fmt.Sprintf("access-%s-%d", subjectID, s.issued), s.now.Add(time.Hour), nil
}

func (s *stubTokens) VerifyAccess(string) (port.AccessClaims, error) {
	return port.AccessClaims{}, errors.New("unexpected call: VerifyAccess")
}

func (s *stubTokens) IssueRefresh() (string, error) {
	if len(s.refresh) == 0 {
		return "", errors.New("no refresh tokens left")
	}
	token := s.refresh[0]
	s.refresh = s.refresh[1:]
	return token, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (r *recordingAudit) Record(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordingAudit) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingAudit) last() domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return domain.AuditEntry{}
	}
	return r.entries[len(r.entries)-1]
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type counterMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCounterMetrics() *counterMetrics {
	return &counterMetrics{counts: map[string]int{}}
}

func (c *counterMetrics) inc(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
}

func (c *counterMetrics) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

func (c *counterMetrics) ObserveLogin(outcome string)      { c.inc("login:" + outcome) }
func (c *counterMetrics) ObserveAudit(action string)       { c.inc("audit:" + action) }
func (c *counterMetrics) ObserveAuditFailure(sink string)  { c.inc("audit_failure:" + sink) }
func (c *counterMetrics) ObserveImageUpload(result string) { c.inc("upload:" + result) }

type memoryPlants struct {
	mu     sync.Mutex
	plants []domain.Plant

	lastFilter domain.PlantFilter
	total      int
}

func (m *memoryPlants) Create(_ context.Context, plants ...domain.Plant) ([]domain.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plants = append(m.plants, plants...)
	return append([]domain.Plant(nil), plants...), nil
}

func (m *memoryPlants) GetByID(_ context.Context, id string) (*domain.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.plants {
		if m.plants[i].ID == id {
			plant := m.plants[i]
			return &plant, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryPlants) List(_ context.Context, filter domain.PlantFilter) ([]domain.Plant, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	var matched []domain.Plant
	for _, p := range m.plants {
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Family != "" && p.Family != filter.Family {
			continue
		}
		matched = append(matched, p)
	}
	total := len(matched)
	if m.total > 0 {
		total = m.total
	}
	if filter.Offset >= len(matched) {
		return []domain.Plant{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func (m *memoryPlants) AppendImage(_ context.Context, id, url string, at time.Time) (*domain.Plant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.plants {
		if m.plants[i].ID == id {
			m.plants[i].Images = append(m.plants[i].Images, url)
			m.plants[i].UpdatedAt = at
			plant := m.plants[i]
			return &plant, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memoryImages struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryImages() *memoryImages {
	return &memoryImages{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryImages) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}
