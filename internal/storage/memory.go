package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devclub-edu/leaderboard/internal/models"
)

// MemoryRepository implements Repository in process memory.
// Used for local runs (DATABASE_DSN=memory) and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	emails   map[string]string
	requests map[string]*models.Request
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[string]*models.User),
		emails:   make(map[string]string),
		requests: make(map[string]*models.Request),
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Tasks != nil {
		c.Tasks = make([]models.Task, len(u.Tasks))
		copy(c.Tasks, u.Tasks)
	}
	return &c
}

func cloneRequest(r *models.Request) *models.Request {
	c := *r
	return &c
}

func (m *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := models.NormalizeEmail(u.Email)
	if _, exists := m.emails[email]; exists {
		return ErrDuplicateEmail
	}
	if _, exists := m.users[u.ID]; exists {
		return fmt.Errorf("user %s already exists", u.ID)
	}

	stored := cloneUser(u)
	stored.Email = email
	m.users[u.ID] = stored
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	id = canonicalID(id)
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return cloneUser(m.users[id]), nil
}

func (m *MemoryRepository) ListStudents(ctx context.Context, domain models.Domain) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*models.User
	for _, u := range m.users {
		if u.Role != models.RoleStudent {
			continue
		}
		if domain != models.DomainNone && u.Domain != domain {
			continue
		}
		users = append(users, cloneUser(u))
	}

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryRepository) SetTaskCompletion(ctx context.Context, userID, taskID string, completed bool) (*models.User, error) {
	userID, taskID = canonicalID(userID), canonicalID(taskID)
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("task %s of user %s: %w", taskID, userID, ErrNotFound)
	}
	idx := u.FindTask(taskID)
	if idx < 0 {
		return nil, fmt.Errorf("task %s of user %s: %w", taskID, userID, ErrNotFound)
	}

	u.Tasks[idx].Completed = completed
	u.Points = u.CalculatePoints()
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (m *MemoryRepository) AddAwardedPoints(ctx context.Context, userID string, delta int) (*models.User, error) {
	userID = canonicalID(userID)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.addAwardedPoints(userID, delta); err != nil {
		return nil, err
	}
	return cloneUser(m.users[userID]), nil
}

// addAwardedPoints must be called with the lock held
func (m *MemoryRepository) addAwardedPoints(userID string, delta int) error {
	u, ok := m.users[userID]
	if !ok || u.Role != models.RoleStudent {
		return fmt.Errorf("student %s: %w", userID, ErrNotFound)
	}
	u.AwardedPoints += delta
	u.Points += delta
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) CreateRequest(ctx context.Context, req *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[req.StudentID]; !ok {
		return fmt.Errorf("student %s: %w", req.StudentID, ErrNotFound)
	}
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

// withStudent copies a request and joins in the student's name and email
func (m *MemoryRepository) withStudent(req *models.Request) *models.Request {
	c := cloneRequest(req)
	if u, ok := m.users[req.StudentID]; ok {
		c.StudentName = u.Name
		c.StudentEmail = u.Email
	}
	return c
}

func (m *MemoryRepository) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	id = canonicalID(id)
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return m.withStudent(req), nil
}

func (m *MemoryRepository) LatestRequestByStudent(ctx context.Context, studentID string) (*models.Request, error) {
	studentID = canonicalID(studentID)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.Request
	for _, req := range m.requests {
		if req.StudentID != studentID {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, nil
	}
	return m.withStudent(latest), nil
}

func (m *MemoryRepository) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var requests []*models.Request
	for _, req := range m.requests {
		if req.Status == models.RequestPending {
			requests = append(requests, m.withStudent(req))
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

func (m *MemoryRepository) ResolveRequest(ctx context.Context, id string, award int) (*models.User, error) {
	id = canonicalID(id)
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	if award > 0 {
		if err := m.addAwardedPoints(req.StudentID, award); err != nil {
			return nil, err
		}
	}
	delete(m.requests, id)

	u, ok := m.users[req.StudentID]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// canonicalID matches ids the way the UUID columns of the Postgres store do
func canonicalID(id string) string {
	if key, ok := ParseID(id); ok {
		return key
	}
	return id
}
