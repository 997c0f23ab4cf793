package leaderboard

import (
	"strconv"
	"strings"

	"github.com/devclub-edu/leaderboard/internal/models"
)

const (
	ColRank       = "Rank"
	ColName       = "Name"
	ColEmail      = "Email"
	ColBranch     = "Branch"
	ColYear       = "Year"
	ColAttendance = "Attendance"
	ColPoints     = "Points"

	TaskPrefix = "Task: "
	Done       = "✅"
	NotDone    = "❌"
)

// BaseHeader is the header row of a freshly created domain sheet
var BaseHeader = []string{ColRank, ColName, ColEmail, ColBranch, ColYear, ColAttendance, ColPoints}

// Profile is the per-student data mirrored into a row
type Profile struct {
	Name       string
	Email      string
	Branch     string
	Year       int
	Attendance int
	Points     int
}

// TaskStatus is one task column of a row
type TaskStatus struct {
	Name      string
	Completed bool
}

// Member is a student with its task checklist
type Member struct {
	Profile
	Tasks []TaskStatus
}

// MemberOf converts a stored user into a mirror row
func MemberOf(u *models.User) Member {
	m := Member{
		Profile: Profile{
			Name:       u.Name,
			Email:      u.Email,
			Branch:     u.Branch,
			Year:       u.Year,
			Attendance: u.Attendance,
			Points:     u.Points,
		},
		Tasks: make([]TaskStatus, len(u.Tasks)),
	}
	for i, t := range u.Tasks {
		m.Tasks[i] = TaskStatus{Name: t.Name, Completed: t.Completed}
	}
	return m
}

// TaskHeader is the column title of a task
func TaskHeader(name string) string {
	return TaskPrefix + name
}

// cells returns every column value of a member except Rank
func (m Member) cells() map[string]string {
	year := ""
	if m.Year > 0 {
		year = strconv.Itoa(m.Year)
	}

	values := map[string]string{
		ColName:       m.Name,
		ColEmail:      m.Email,
		ColBranch:     m.Branch,
		ColYear:       year,
		ColAttendance: strconv.Itoa(m.Attendance),
		ColPoints:     strconv.Itoa(m.Points),
	}
	for _, t := range m.Tasks {
		mark := NotDone
		if t.Completed {
			mark = Done
		}
		values[TaskHeader(t.Name)] = mark
	}
	return values
}

// parseInt reads an integer cell; anything unparsable counts as 0
func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
