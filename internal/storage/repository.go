package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/devclub-edu/leaderboard/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository defines the interface for users, tasks and point requests.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListStudents(ctx context.Context, domain models.Domain) ([]*models.User, error)

	// SetTaskCompletion updates one task of a user and recomputes the stored total
	SetTaskCompletion(ctx context.Context, userID, taskID string, completed bool) (*models.User, error)
	// AddAwardedPoints adds an admin grant to a user's total
	AddAwardedPoints(ctx context.Context, userID string, delta int) (*models.User, error)

	// Requests
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	LatestRequestByStudent(ctx context.Context, studentID string) (*models.Request, error)
	ListPendingRequests(ctx context.Context) ([]*models.Request, error)
	// ResolveRequest deletes a request and grants award points to its student in one step
	ResolveRequest(ctx context.Context, id string, award int) (*models.User, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// ParseID returns the canonical form of a record id. Ids that are not UUIDs
// cannot match any stored record.
func ParseID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
