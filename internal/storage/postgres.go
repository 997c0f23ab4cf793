package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devclub-edu/leaderboard/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Migrate applies the embedded schema migrations
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, r.pool, Migrations())
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const userColumns = `id, name, email, password_hash, role, domain, branch, year, attendance, points, awarded_points, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	var domain sql.NullString
	var year sql.NullInt32

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&domain,
		&u.Branch,
		&year,
		&u.Attendance,
		&u.Points,
		&u.AwardedPoints,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.Domain = models.Domain(domain.String)
	u.Year = int(year.Int32)
	return &u, nil
}

// CreateUser inserts a user and its tasks in one transaction
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, query,
		u.ID,
		u.Name,
		models.NormalizeEmail(u.Email),
		u.PasswordHash,
		string(u.Role),
		nullString(string(u.Domain)),
		u.Branch,
		nullInt(u.Year),
		u.Attendance,
		u.Points,
		u.AwardedPoints,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	for i, t := range u.Tasks {
		_, err := tx.Exec(ctx, `
			INSERT INTO tasks (id, user_id, position, name, completed, points, due_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, t.ID, u.ID, i, t.Name, t.Completed, t.Points, nullTime(t.DueDate))
		if err != nil {
			return fmt.Errorf("failed to create task %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user with its tasks
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	id, ok := ParseID(id)
	if !ok {
		return nil, nil
	}
	return r.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, ignoring case
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "LOWER(email)", models.NormalizeEmail(email))
}

func (r *PostgresRepository) getUser(ctx context.Context, field, value string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, field)

	u, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tasks, err := r.loadTasks(ctx, []string{u.ID})
	if err != nil {
		return nil, err
	}
	u.Tasks = tasks[u.ID]
	return u, nil
}

// ListStudents returns students ordered by points descending. An empty domain lists every student.
func (r *PostgresRepository) ListStudents(ctx context.Context, domain models.Domain) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'student' AND ($1 = '' OR domain = $1)
		ORDER BY points DESC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, string(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	var ids []string
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	if len(ids) == 0 {
		return users, nil
	}

	tasks, err := r.loadTasks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Tasks = tasks[u.ID]
	}
	return users, nil
}

// loadTasks returns the ordered tasks of each given user
func (r *PostgresRepository) loadTasks(ctx context.Context, userIDs []string) (map[string][]models.Task, error) {
	query := `
		SELECT id, user_id, name, completed, points, due_date
		FROM tasks
		WHERE user_id = ANY($1)
		ORDER BY user_id, position
	`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.Task, len(userIDs))
	for rows.Next() {
		var t models.Task
		var userID string
		var dueDate sql.NullTime

		if err := rows.Scan(&t.ID, &userID, &t.Name, &t.Completed, &t.Points, &dueDate); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if dueDate.Valid {
			t.DueDate = &dueDate.Time
		}
		result[userID] = append(result[userID], t)
	}

	return result, rows.Err()
}

// SetTaskCompletion updates a task flag and rederives the user's total from scratch
func (r *PostgresRepository) SetTaskCompletion(ctx context.Context, userID, taskID string, completed bool) (*models.User, error) {
	userKey, userOK := ParseID(userID)
	taskKey, taskOK := ParseID(taskID)
	if !userOK || !taskOK {
		return nil, fmt.Errorf("task %s of user %s: %w", taskID, userID, ErrNotFound)
	}
	userID, taskID = userKey, taskKey

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE tasks SET completed = $3 WHERE id = $2 AND user_id = $1`, userID, taskID, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("task %s of user %s: %w", taskID, userID, ErrNotFound)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET points = awarded_points + COALESCE((SELECT SUM(points) FROM tasks WHERE user_id = $1 AND completed), 0),
		    updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}

	return r.GetUserByID(ctx, userID)
}

// AddAwardedPoints adds delta to a student's grants and total
func (r *PostgresRepository) AddAwardedPoints(ctx context.Context, userID string, delta int) (*models.User, error) {
	if err := addAwardedPoints(ctx, r.pool, userID, delta); err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, userID)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func addAwardedPoints(ctx context.Context, db execer, userID string, delta int) error {
	key, ok := ParseID(userID)
	if !ok {
		return fmt.Errorf("student %s: %w", userID, ErrNotFound)
	}
	userID = key

	result, err := db.Exec(ctx, `
		UPDATE users
		SET awarded_points = awarded_points + $2, points = points + $2, updated_at = NOW()
		WHERE id = $1 AND role = 'student'
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to award points: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("student %s: %w", userID, ErrNotFound)
	}
	return nil
}

// CreateRequest stores a new point request
func (r *PostgresRepository) CreateRequest(ctx context.Context, req *models.Request) error {
	query := `
		INSERT INTO requests (id, student_id, task_description, points_requested, status, custom_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.StudentID,
		req.TaskDescription,
		req.PointsRequested,
		string(req.Status),
		req.CustomPoints,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

const requestColumns = `r.id, r.student_id, r.task_description, r.points_requested, r.status, r.custom_points, r.created_at, r.updated_at, u.name, u.email`

func scanRequest(row rowScanner) (*models.Request, error) {
	var req models.Request
	var status string

	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.TaskDescription,
		&req.PointsRequested,
		&status,
		&req.CustomPoints,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.StudentName,
		&req.StudentEmail,
	)
	if err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	return &req, nil
}

// GetRequest retrieves a request by ID
func (r *PostgresRepository) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	id, ok := ParseID(id)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + requestColumns + ` FROM requests r JOIN users u ON u.id = r.student_id WHERE r.id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// LatestRequestByStudent returns the student's most recent request
func (r *PostgresRepository) LatestRequestByStudent(ctx context.Context, studentID string) (*models.Request, error) {
	studentID, ok := ParseID(studentID)
	if !ok {
		return nil, nil
	}
	query := `
		SELECT ` + requestColumns + `
		FROM requests r JOIN users u ON u.id = r.student_id
		WHERE r.student_id = $1
		ORDER BY r.created_at DESC
		LIMIT 1
	`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest request: %w", err)
	}
	return req, nil
}

// ListPendingRequests returns every pending request, oldest first
func (r *PostgresRepository) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests r JOIN users u ON u.id = r.student_id
		WHERE r.status = 'pending'
		ORDER BY r.created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// ResolveRequest deletes a request and, when award is positive, credits its student
func (r *PostgresRepository) ResolveRequest(ctx context.Context, id string, award int) (*models.User, error) {
	key, ok := ParseID(id)
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	id = key

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var studentID string
	err = tx.QueryRow(ctx, `DELETE FROM requests WHERE id = $1 RETURNING student_id`, id).Scan(&studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete request: %w", err)
	}

	if award > 0 {
		if err := addAwardedPoints(ctx, tx, studentID, award); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit request decision: %w", err)
	}

	return r.GetUserByID(ctx, studentID)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int) sql.NullInt32 {
	if i == 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(i), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
