package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes students from admins
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is a known value
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Domain is the learning track a student is enrolled in
type Domain string

const (
	DomainNone   Domain = ""
	DomainWebDev Domain = "webd"
	DomainAIML   Domain = "aiml"
	DomainDSA    Domain = "dsa"
)

// Domains lists every enrollable domain in display order
var Domains = []Domain{DomainWebDev, DomainAIML, DomainDSA}

// ParseDomain resolves a raw value to a known domain
func ParseDomain(s string) (Domain, bool) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains {
		if d == known {
			return d, true
		}
	}
	return DomainNone, false
}

// SheetTitle is the name of the spreadsheet tab mirroring this domain
func (d Domain) SheetTitle() string {
	return strings.ToUpper(string(d))
}

// User is a student or admin account
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	Domain        Domain    `json:"domain,omitempty"`
	Branch        string    `json:"branch,omitempty"`
	Year          int       `json:"year,omitempty"`
	Attendance    int       `json:"attendance"`
	Points        int       `json:"points"`
	AwardedPoints int       `json:"awarded_points"`
	Tasks         []Task    `json:"tasks,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Task is one checklist item owned by a user. Points never change after creation.
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Completed bool       `json:"completed"`
	Points    int        `json:"points"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// IsAdmin returns true for admin accounts
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// TaskPoints sums the points of completed tasks
func (u *User) TaskPoints() int {
	total := 0
	for _, t := range u.Tasks {
		if t.Completed {
			total += t.Points
		}
	}
	return total
}

// CalculatePoints derives the point total from completed tasks plus admin grants
func (u *User) CalculatePoints() int {
	return u.TaskPoints() + u.AwardedPoints
}

// FindTask returns the index of the task with the given id, or -1
func (u *User) FindTask(taskID string) int {
	for i, t := range u.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// NormalizeEmail lower-cases and trims an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewStudent builds a student with its domain checklist already assigned.
// tasks must come from the domain template; they are owned by the returned user.
func NewStudent(name, email, passwordHash string, domain Domain, branch string, year int, tasks []Task) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleStudent,
		Domain:       domain,
		Branch:       strings.TrimSpace(branch),
		Year:         year,
		Tasks:        tasks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewAdmin builds an admin account. Admins never carry a domain or tasks.
func NewAdmin(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleAdmin,
		Domain:       DomainNone,
		Branch:       "ADMIN",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
