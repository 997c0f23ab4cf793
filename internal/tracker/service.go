package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devclub-edu/leaderboard/internal/auth"
	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/metrics"
	"github.com/devclub-edu/leaderboard/internal/models"
	"github.com/devclub-edu/leaderboard/internal/storage"
	"github.com/devclub-edu/leaderboard/internal/templates"
)

const (
	DefaultCooldown    = 16 * time.Hour
	DefaultSyncTimeout = 30 * time.Second
)

// Manager defines the student task tracker operations
type Manager interface {
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (*models.User, bool, error)

	SetTaskCompletion(ctx context.Context, userID, taskID string, completed bool) (int, error)

	SubmitRequest(ctx context.Context, student *models.User, req models.CreatePointRequest) (*models.Request, error)
	PendingRequests(ctx context.Context) ([]*models.Request, error)
	DecideRequest(ctx context.Context, id string, req models.DecideRequest) (*models.User, error)
	AssignPoints(ctx context.Context, req models.AssignPointsRequest) (*models.User, error)

	StudentLeaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error)
	DomainTasks(ctx context.Context, domain models.Domain) ([]*models.User, error)
	Leaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error)
	Rebuild(ctx context.Context, domain models.Domain) error

	Ping(ctx context.Context) error
}

// Mirror receives best-effort copies of student rows
type Mirror interface {
	UpsertUserWithTasks(ctx context.Context, domain models.Domain, profile leaderboard.Profile, tasks []leaderboard.TaskStatus) error
	SyncDomain(ctx context.Context, domain models.Domain, members []leaderboard.Member) error
	Leaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error)
}

// Options holds optional Service parameters
type Options struct {
	Cooldown    time.Duration
	SyncTimeout time.Duration
	Now         func() time.Time
}

// Service implements Manager on top of a Repository
type Service struct {
	repo        storage.Repository
	templates   *templates.Loader
	tokens      *auth.Issuer
	mirror      Mirror
	cooldown    time.Duration
	syncTimeout time.Duration
	now         func() time.Time
}

// NewService creates a new Service
func NewService(repo storage.Repository, loader *templates.Loader, tokens *auth.Issuer, mirror Mirror, opts Options) *Service {
	s := &Service{
		repo:        repo,
		templates:   loader,
		tokens:      tokens,
		mirror:      mirror,
		cooldown:    opts.Cooldown,
		syncTimeout: opts.SyncTimeout,
		now:         opts.Now,
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultCooldown
	}
	if s.syncTimeout <= 0 {
		s.syncTimeout = DefaultSyncTimeout
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Ping checks the primary store
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// --- Identity ---

// Signup registers a student with the domain's default checklist
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = models.NormalizeEmail(req.Email)
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	req.Branch = strings.TrimSpace(req.Branch)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	domain, _ := models.ParseDomain(req.Domain)

	existing, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tasks, err := s.templates.AssignDefaultTasks(domain)
	if err != nil {
		return nil, fmt.Errorf("failed to assign tasks: %w", err)
	}

	user := models.NewStudent(req.Name, req.Email, hash, domain, req.Branch, req.Year, tasks)
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("student registered", "user_id", user.ID, "domain", domain)

	s.pushRow(ctx, user)
	return user, nil
}

// Login verifies credentials and issues a token
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &models.LoginResponse{Token: token, Role: user.Role}, nil
}

// Authenticate resolves a bearer token to the stored user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// GetUser returns a user with its tasks
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin if no account uses the email yet
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*models.User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up admin: %w", err)
	}
	if existing != nil {
		if !existing.IsAdmin() {
			slog.Warn("bootstrap admin email belongs to a student", "user_id", existing.ID)
		}
		return existing, false, nil
	}

	if len(password) < 6 {
		return nil, false, invalid("password", "Password must be at least 6 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := models.NewAdmin("Admin", email, hash)
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			existing, err := s.repo.GetUserByEmail(ctx, email)
			return existing, false, err
		}
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin user created", "user_id", admin.ID, "email", admin.Email)
	return admin, true, nil
}

// --- Tasks ---

// SetTaskCompletion sets a task flag and returns the rederived point total
func (s *Service) SetTaskCompletion(ctx context.Context, userID, taskID string, completed bool) (int, error) {
	user, err := s.repo.SetTaskCompletion(ctx, userID, taskID, completed)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrTaskNotFound
		}
		return 0, fmt.Errorf("failed to update task: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	metrics.TaskToggles.Inc()
	slog.Info("task updated", "user_id", userID, "task_id", taskID, "completed", completed, "points", user.Points)

	s.pushRow(ctx, user)
	return user.Points, nil
}

// --- Point requests ---

// SubmitRequest records a point request unless the student's previous one is within the cooldown
func (s *Service) SubmitRequest(ctx context.Context, student *models.User, req models.CreatePointRequest) (*models.Request, error) {
	req.TaskDescription = strings.TrimSpace(req.TaskDescription)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	now := s.now()

	latest, err := s.repo.LatestRequestByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest request: %w", err)
	}
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < s.cooldown {
			metrics.PointRequests.WithLabelValues("cooldown").Inc()
			return nil, &CooldownError{Remaining: s.cooldown - elapsed}
		}
	}

	request := &models.Request{
		ID:              uuid.New().String(),
		StudentID:       student.ID,
		TaskDescription: req.TaskDescription,
		PointsRequested: req.PointsRequested,
		Status:          models.RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		StudentName:     student.Name,
		StudentEmail:    student.Email,
	}

	if err := s.repo.CreateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	metrics.PointRequests.WithLabelValues("submitted").Inc()
	slog.Info("point request submitted", "request_id", request.ID, "student_id", student.ID)
	return request, nil
}

// PendingRequests lists requests awaiting review
func (s *Service) PendingRequests(ctx context.Context) ([]*models.Request, error) {
	requests, err := s.repo.ListPendingRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	if requests == nil {
		requests = []*models.Request{}
	}
	return requests, nil
}

// DecideRequest accepts or declines a request. Either way the request is removed.
func (s *Service) DecideRequest(ctx context.Context, id string, req models.DecideRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	award := 0
	if req.Status == models.RequestAccepted {
		if req.CustomPoints == nil {
			return nil, invalid("customPoints", "Custom points are required when accepting a request")
		}
		award = *req.CustomPoints
	}

	student, err := s.repo.ResolveRequest(ctx, id, award)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to resolve request: %w", err)
	}

	metrics.PointRequests.WithLabelValues(string(req.Status)).Inc()
	slog.Info("point request decided", "request_id", id, "status", req.Status, "points", award)

	if req.Status == models.RequestAccepted {
		s.pushRow(ctx, student)
	}
	return student, nil
}

// AssignPoints grants points to a student directly
func (s *Service) AssignPoints(ctx context.Context, req models.AssignPointsRequest) (*models.User, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var target *models.User
	var err error
	if req.UserID != "" {
		target, err = s.repo.GetUserByID(ctx, req.UserID)
	} else {
		target, err = s.repo.GetUserByEmail(ctx, req.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	if target.IsAdmin() {
		return nil, invalid("userId", "Points can only be assigned to students")
	}

	student, err := s.repo.AddAwardedPoints(ctx, target.ID, req.Points)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to assign points: %w", err)
	}

	slog.Info("points assigned", "user_id", student.ID, "points", req.Points, "total", student.Points)

	s.pushRow(ctx, student)
	return student, nil
}

// --- Leaderboards ---

// StudentLeaderboard ranks students from the primary store. An empty domain ranks everyone.
func (s *Service) StudentLeaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error) {
	students, err := s.repo.ListStudents(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	entries := make([]models.LeaderboardEntry, len(students))
	for i, u := range students {
		entries[i] = models.LeaderboardEntry{
			Rank:       i + 1,
			Name:       u.Name,
			Email:      u.Email,
			Branch:     u.Branch,
			Year:       u.Year,
			Attendance: u.Attendance,
			Points:     u.Points,
		}
	}
	return entries, nil
}

// DomainTasks lists a domain's students with their checklists
func (s *Service) DomainTasks(ctx context.Context, domain models.Domain) ([]*models.User, error) {
	students, err := s.repo.ListStudents(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []*models.User{}
	}
	return students, nil
}

// Leaderboard reads the mirrored ranking of a domain
func (s *Service) Leaderboard(ctx context.Context, domain models.Domain) ([]models.LeaderboardEntry, error) {
	return s.mirror.Leaderboard(ctx, domain)
}

// Rebuild rewrites a domain sheet from the primary store
func (s *Service) Rebuild(ctx context.Context, domain models.Domain) error {
	students, err := s.repo.ListStudents(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	members := make([]leaderboard.Member, len(students))
	for i, u := range students {
		members[i] = leaderboard.MemberOf(u)
	}
	return s.mirror.SyncDomain(ctx, domain, members)
}

// pushRow mirrors a student's row. Failures are logged and never undo the local change.
func (s *Service) pushRow(ctx context.Context, u *models.User) {
	if u == nil || u.Role != models.RoleStudent || u.Domain == models.DomainNone {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)
	defer cancel()

	m := leaderboard.MemberOf(u)
	if err := s.mirror.UpsertUserWithTasks(ctx, u.Domain, m.Profile, m.Tasks); err != nil {
		if errors.Is(err, leaderboard.ErrNotInitialized) {
			slog.Debug("leaderboard sync skipped, synchronizer not initialized", "user_id", u.ID)
			return
		}
		slog.Warn("leaderboard sync failed", "user_id", u.ID, "domain", u.Domain, "error", err)
	}
}
