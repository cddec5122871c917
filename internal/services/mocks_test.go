package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/tradejournal/backend/internal/models"
)

// mockUserRepository is a mock implementation of UserRepository and UserAdminRepository
type mockUserRepository struct {
	users               map[int]*models.User
	count               int
	err                 error
	countErr            error
	createErr           error
	updateErr           error
	deleteErr           error
	existsByEmailResult bool
	existsByUsername    bool
	created             *models.User
	updated             *models.User
	listed              [2]int
}

func newMockUserRepository(users ...*models.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[int]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = len(m.users) + 1
	m.created = user
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int, error) {
	return m.count, m.countErr
}

func (m *mockUserRepository) GetByEmailOrUsername(ctx context.Context, login string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Username == login {
			copied := *u
			return &copied, nil
		}
	}
	for _, u := range m.users {
		if u.Email == login {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, userID int) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.existsByEmailResult, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.existsByUsername, nil
}

func (m *mockUserRepository) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	m.listed = [2]int{skip, limit}
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, m.err
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *user
	m.updated = &copied
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, userID int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[userID]; !ok {
		return models.ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

// mockSessionStore is a mock implementation of SessionStore
type mockSessionStore struct {
	sessions  map[string]*models.Session
	saveErr   error
	deleteErr error
	revokeErr error
	revoked   []int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*models.Session)}
}

func (m *mockSessionStore) Save(ctx context.Context, sess *models.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sess, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) DeleteByUser(ctx context.Context, userID int) (int, error) {
	if m.revokeErr != nil {
		return 0, m.revokeErr
	}
	m.revoked = append(m.revoked, userID)
	removed := 0
	for id, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// mockNotifier is a mock implementation of WelcomeNotifier
type mockNotifier struct {
	err      error
	enqueued []int
}

func (m *mockNotifier) EnqueueWelcome(ctx context.Context, user *models.User) error {
	m.enqueued = append(m.enqueued, user.ID)
	return m.err
}

// mockPortfolioRepository is a mock implementation of PortfolioRepository
type mockPortfolioRepository struct {
	mu         sync.Mutex
	portfolios map[int]*models.Portfolio
	err        error
	deleted    []int
}

func newMockPortfolioRepository(portfolios ...*models.Portfolio) *mockPortfolioRepository {
	m := &mockPortfolioRepository{portfolios: make(map[int]*models.Portfolio)}
	for _, p := range portfolios {
		m.portfolios[p.ID] = p
	}
	return m
}

func (m *mockPortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if m.err != nil {
		return m.err
	}
	portfolio.ID = len(m.portfolios) + 100
	copied := *portfolio
	m.portfolios[portfolio.ID] = &copied
	return nil
}

func (m *mockPortfolioRepository) GetByID(ctx context.Context, id int) (*models.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.portfolios[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPortfolioRepository) ListByUser(ctx context.Context, userID int) ([]models.Portfolio, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.Portfolio, 0)
	for id := 1; id <= 1000; id++ {
		if p, ok := m.portfolios[id]; ok && p.UserID == userID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockPortfolioRepository) Update(ctx context.Context, portfolio *models.Portfolio) error {
	if m.err != nil {
		return m.err
	}
	copied := *portfolio
	m.portfolios[portfolio.ID] = &copied
	return nil
}

func (m *mockPortfolioRepository) Delete(ctx context.Context, id int) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	delete(m.portfolios, id)
	return nil
}

// mockTradeRepository is a mock implementation of TradeRepository and ClosedTradeRepository
type mockTradeRepository struct {
	mu          sync.Mutex
	trades      map[int]*models.Trade
	listErr     error
	updateErr   error
	listedWith  *models.TradeStatus
	screenshots map[int]string
	deleted     []int
}

func newMockTradeRepository(trades ...*models.Trade) *mockTradeRepository {
	m := &mockTradeRepository{
		trades:      make(map[int]*models.Trade),
		screenshots: make(map[int]string),
	}
	for _, t := range trades {
		m.trades[t.ID] = t
	}
	return m
}

func (m *mockTradeRepository) Create(ctx context.Context, trade *models.Trade) error {
	trade.ID = len(m.trades) + 500
	copied := *trade
	m.trades[trade.ID] = &copied
	return nil
}

func (m *mockTradeRepository) GetByID(ctx context.Context, id int) (*models.Trade, error) {
	t, ok := m.trades[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *mockTradeRepository) ListByPortfolio(ctx context.Context, portfolioID int, status *models.TradeStatus) ([]models.Trade, error) {
	m.listedWith = status
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]models.Trade, 0)
	for id := 1; id <= 1000; id++ {
		t, ok := m.trades[id]
		if !ok || t.PortfolioID != portfolioID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		result = append(result, *t)
	}
	return result, nil
}

func (m *mockTradeRepository) ListClosedByPortfolio(ctx context.Context, portfolioID int) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]models.Trade, 0)
	for id := 1; id <= 1000; id++ {
		if t, ok := m.trades[id]; ok && t.PortfolioID == portfolioID && t.Status == models.TradeStatusClosed {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockTradeRepository) Update(ctx context.Context, trade *models.Trade) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *trade
	m.trades[trade.ID] = &copied
	return nil
}

func (m *mockTradeRepository) UpdateScreenshot(ctx context.Context, id int, screenshotPath string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.screenshots[id] = screenshotPath
	m.trades[id].ScreenshotPath = &screenshotPath
	return nil
}

func (m *mockTradeRepository) Delete(ctx context.Context, id int) error {
	if _, ok := m.trades[id]; !ok {
		return models.ErrNotFound
	}
	m.deleted = append(m.deleted, id)
	delete(m.trades, id)
	return nil
}

// mockStorage is a mock implementation of ScreenshotStorage
type mockStorage struct {
	files     map[string]*bytes.Buffer
	deleted   []string
	createErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string]*bytes.Buffer)}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (m *mockStorage) Create(name, mediaType string) (io.WriteCloser, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	buf := &bytes.Buffer{}
	m.files[mediaType+"/"+name] = buf
	return nopWriteCloser{buf}, nil
}

func (m *mockStorage) Delete(name, mediaType string) error {
	m.deleted = append(m.deleted, mediaType+"/"+name)
	delete(m.files, mediaType+"/"+name)
	return nil
}

func (m *mockStorage) URL(name, mediaType string) string {
	return "/uploads/" + mediaType + "/" + name
}

var errDatabase = errors.New("database error")

func ptr[T any](v T) *T {
	return &v
}
