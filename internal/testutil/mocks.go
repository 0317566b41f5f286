package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/websocket"
	"github.com/google/uuid"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	ByID     map[uuid.UUID]*domain.User
	CreateFn func(auth0ID, email string, name, pictureURL *string) (*domain.User, bool, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
		ByID:  make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// UpdateName updates only the user's name by Auth0 ID
func (m *MockUserRepository) UpdateName(auth0ID string, name string) (*domain.User, error) {
	user, ok := m.Users[auth0ID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Name = &name
	return user, nil
}

// CreateOrGetByAuth0ID creates or retrieves a user by Auth0 ID
func (m *MockUserRepository) CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*domain.User, bool, error) {
	if m.CreateFn != nil {
		return m.CreateFn(auth0ID, email, name, pictureURL)
	}
	if user, ok := m.Users[auth0ID]; ok {
		return user, false, nil
	}
	user := &domain.User{
		ID:         uuid.New(),
		Auth0ID:    auth0ID,
		Email:      email,
		Name:       name,
		PictureURL: pictureURL,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.Users[auth0ID] = user
	m.ByID[user.ID] = user
	return user, true, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
	m.ByID[user.ID] = user
}

// MockStatementRepository is an in-memory implementation of domain.StatementRepository.
// Stored statements are copied on the way in and out.
type MockStatementRepository struct {
	mu         sync.Mutex
	Statements map[uuid.UUID]*domain.Statement
	ListCalls  int
	CreateFn   func(statement *domain.Statement) (*domain.Statement, error)
	UpdateFn   func(statement *domain.Statement) (*domain.Statement, error)
	ListFn     func(userID uuid.UUID, filter domain.StatementFilter) ([]*domain.Statement, error)
}

// NewMockStatementRepository creates a new MockStatementRepository
func NewMockStatementRepository() *MockStatementRepository {
	return &MockStatementRepository{
		Statements: make(map[uuid.UUID]*domain.Statement),
	}
}

// AddStatement stores a statement directly (helper for tests). Missing ids are generated.
func (m *MockStatementRepository) AddStatement(statement *domain.Statement) *domain.Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	if statement.ID == uuid.Nil {
		statement.ID = uuid.New()
	}
	if statement.Incomes == nil {
		statement.Incomes = []domain.Income{}
	}
	m.Statements[statement.ID] = statement.Clone()
	return statement
}

func (m *MockStatementRepository) periodTaken(statement *domain.Statement) bool {
	year, month := statement.Period()
	for _, st := range m.Statements {
		if st.UserID != statement.UserID || st.ID == statement.ID {
			continue
		}
		y, mo := st.Period()
		if y == year && mo == month {
			return true
		}
	}
	return false
}

// Create stores a new statement, enforcing one statement per user and period
func (m *MockStatementRepository) Create(ctx context.Context, statement *domain.Statement) (*domain.Statement, error) {
	if m.CreateFn != nil {
		return m.CreateFn(statement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.periodTaken(statement) {
		return nil, domain.ErrStatementExists
	}
	created := statement.Clone()
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	if created.Incomes == nil {
		created.Incomes = []domain.Income{}
	}
	m.Statements[created.ID] = created
	return created.Clone(), nil
}

// GetByID retrieves a statement owned by the user
func (m *MockStatementRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statements[id]
	if !ok || st.UserID != userID {
		return nil, domain.ErrStatementNotFound
	}
	return st.Clone(), nil
}

// List returns the user's statements ordered by year desc, month desc
func (m *MockStatementRepository) List(ctx context.Context, userID uuid.UUID, filter domain.StatementFilter) ([]*domain.Statement, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(userID, filter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.Statement{}
	for _, st := range m.Statements {
		if st.UserID != userID {
			continue
		}
		if filter.Year != nil && st.Year.Int() != *filter.Year {
			continue
		}
		result = append(result, st.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		iy, im := result[i].Period()
		jy, jm := result[j].Period()
		if iy != jy {
			return iy > jy
		}
		return im > jm
	})
	return result, nil
}

// Update overwrites a stored statement
func (m *MockStatementRepository) Update(ctx context.Context, statement *domain.Statement) (*domain.Statement, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(statement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Statements[statement.ID]
	if !ok || existing.UserID != statement.UserID {
		return nil, domain.ErrStatementNotFound
	}
	if m.periodTaken(statement) {
		return nil, domain.ErrStatementExists
	}
	updated := statement.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	if updated.Incomes == nil {
		updated.Incomes = []domain.Income{}
	}
	m.Statements[updated.ID] = updated
	return updated.Clone(), nil
}

// Delete removes a statement owned by the user
func (m *MockStatementRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.Statements[id]
	if !ok || st.UserID != userID {
		return domain.ErrStatementNotFound
	}
	delete(m.Statements, id)
	return nil
}

// DeleteAll removes all statements of the user
func (m *MockStatementRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, st := range m.Statements {
		if st.UserID == userID {
			delete(m.Statements, id)
			count++
		}
	}
	return count, nil
}

// ImportBatch applies the import through Create and Update, restoring the
// previous contents when any write fails
func (m *MockStatementRepository) ImportBatch(ctx context.Context, userID uuid.UUID, statements []*domain.Statement, replace bool) (*domain.ImportBatchResult, error) {
	m.mu.Lock()
	snapshot := make(map[uuid.UUID]*domain.Statement, len(m.Statements))
	for id, st := range m.Statements {
		snapshot[id] = st.Clone()
	}
	m.mu.Unlock()

	result, err := m.importBatch(ctx, userID, statements, replace)
	if err != nil {
		m.mu.Lock()
		m.Statements = snapshot
		m.mu.Unlock()
		return nil, err
	}
	return result, nil
}

func (m *MockStatementRepository) importBatch(ctx context.Context, userID uuid.UUID, statements []*domain.Statement, replace bool) (*domain.ImportBatchResult, error) {
	result := &domain.ImportBatchResult{Statements: make([]*domain.Statement, 0, len(statements))}
	existing := map[[2]int]*domain.Statement{}

	m.mu.Lock()
	for id, st := range m.Statements {
		if st.UserID != userID {
			continue
		}
		if replace {
			if st.DocumentPath != "" {
				result.RemovedDocuments = append(result.RemovedDocuments, st.DocumentPath)
			}
			delete(m.Statements, id)
			result.Deleted++
			continue
		}
		y, mo := st.Period()
		existing[[2]int{y, mo}] = st.Clone()
	}
	m.mu.Unlock()

	for _, st := range statements {
		y, mo := st.Period()
		if prev, ok := existing[[2]int{y, mo}]; ok {
			st.ID = prev.ID
			st.DocumentPath = prev.DocumentPath
			updated, err := m.Update(ctx, st)
			if err != nil {
				return nil, err
			}
			result.Statements = append(result.Statements, updated)
			result.Updated++
			continue
		}
		created, err := m.Create(ctx, st)
		if err != nil {
			return nil, err
		}
		existing[[2]int{y, mo}] = created
		result.Statements = append(result.Statements, created)
		result.Created++
	}
	return result, nil
}

// GetYears returns the distinct years of the user's statements, newest first
func (m *MockStatementRepository) GetYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int]bool{}
	years := []int{}
	for _, st := range m.Statements {
		if st.UserID != userID {
			continue
		}
		y := st.Year.Int()
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// Count returns the number of stored statements of the user
func (m *MockStatementRepository) Count(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, st := range m.Statements {
		if st.UserID == userID {
			n++
		}
	}
	return n
}

// MockAPITokenRepository is a mock implementation of domain.APITokenRepository
type MockAPITokenRepository struct {
	mu        sync.Mutex
	Tokens    map[uuid.UUID]*domain.APIToken
	CreateErr error
	LastUsed  map[uuid.UUID]int
}

// NewMockAPITokenRepository creates a new MockAPITokenRepository
func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{
		Tokens:   make(map[uuid.UUID]*domain.APIToken),
		LastUsed: make(map[uuid.UUID]int),
	}
}

// AddToken stores a token directly (helper for tests)
func (m *MockAPITokenRepository) AddToken(token *domain.APIToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tokens[token.ID] = token
}

// Create stores a token and assigns its ID
func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	m.Tokens[token.ID] = token
	return nil
}

// GetByUser returns the user's active tokens
func (m *MockAPITokenRepository) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*domain.APIToken{}
	for _, t := range m.Tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			result = append(result, t)
		}
	}
	return result, nil
}

// GetByHash returns an active token by its hash
func (m *MockAPITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Tokens {
		if t.TokenHash == hash && t.RevokedAt == nil {
			return t, nil
		}
	}
	return nil, domain.ErrAPITokenNotFound
}

// Revoke marks a token of the user as revoked
func (m *MockAPITokenRepository) Revoke(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tokens[id]
	if !ok || t.UserID != userID || t.RevokedAt != nil {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

// UpdateLastUsed counts usages per token
func (m *MockAPITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastUsed[id]++
	return nil
}

// MockDocumentRepository is an in-memory implementation of storage.DocumentRepository
type MockDocumentRepository struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	UploadErr error
}

// NewMockDocumentRepository creates a new MockDocumentRepository
func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{Objects: make(map[string][]byte)}
}

// Upload stores the object in memory
func (m *MockDocumentRepository) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf.Bytes()
	return objectPath, nil
}

// Delete removes the object and records the path
func (m *MockDocumentRepository) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// GeneratePresignedURL returns a fake URL for the object
func (m *MockDocumentRepository) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://documents.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// MockAIClient is a scripted language model
type MockAIClient struct {
	mu           sync.Mutex
	ExtractJSON  string
	ExtractErr   error
	AnswerText   string
	AnswerErr    error
	LastPrompt   string
	ExtractCalls int
}

// ExtractStatement returns the scripted JSON
func (m *MockAIClient) ExtractStatement(ctx context.Context, pdf []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractCalls++
	return m.ExtractJSON, m.ExtractErr
}

// Answer records the prompt and returns the scripted answer
func (m *MockAIClient) Answer(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastPrompt = prompt
	return m.AnswerText, m.AnswerErr
}

// PublishedEvent is an event captured by MockEventPublisher
type PublishedEvent struct {
	UserID uuid.UUID
	Event  websocket.Event
}

// MockEventPublisher captures published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// Publish records the event
func (m *MockEventPublisher) Publish(userID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{UserID: userID, Event: event})
}

// Types returns the types of all captured events in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}

// MockCache is an in-memory versioned JSON cache
type MockCache struct {
	mu       sync.Mutex
	entries  map[string][]byte
	versions map[uuid.UUID]int
	Bumps    map[uuid.UUID]int
}

// NewMockCache creates a new MockCache
func NewMockCache() *MockCache {
	return &MockCache{
		entries:  make(map[string][]byte),
		versions: make(map[uuid.UUID]int),
		Bumps:    make(map[uuid.UUID]int),
	}
}

// FetchJSON serves cached values keyed by user, name and version
func (m *MockCache) FetchJSON(ctx context.Context, userID uuid.UUID, name string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	m.mu.Lock()
	key := fmt.Sprintf("%s:%s:v%d", userID, name, m.versions[userID])
	raw, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		return json.Unmarshal(raw, dest)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err = json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = raw
	m.mu.Unlock()
	return json.Unmarshal(raw, dest)
}

// Bump invalidates all entries of the user
func (m *MockCache) Bump(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[userID]++
	m.Bumps[userID]++
	return nil
}
