package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devclub-edu/leaderboard/internal/auth"
	"github.com/devclub-edu/leaderboard/internal/leaderboard"
	"github.com/devclub-edu/leaderboard/internal/models"
	"github.com/devclub-edu/leaderboard/internal/sheets"
	"github.com/devclub-edu/leaderboard/internal/storage"
	"github.com/devclub-edu/leaderboard/internal/templates"
)

type fixture struct {
	svc   *Service
	repo  *storage.MemoryRepository
	doc   *sheets.MemoryDocument
	sync  *leaderboard.Synchronizer
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)

	f := &fixture{
		repo:  storage.NewMemoryRepository(),
		doc:   sheets.NewMemoryDocument(),
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.sync = leaderboard.New(func(ctx context.Context) (sheets.Document, error) { return f.doc, nil })
	require.NoError(t, f.sync.Init(context.Background()))

	f.svc = NewService(f.repo, loader, auth.NewIssuer("test-secret", "test", time.Hour), f.sync, Options{
		Now: func() time.Time { return f.clock },
	})
	return f
}

func (f *fixture) signup(t *testing.T, name, email string, domain models.Domain) *models.User {
	t.Helper()

	u, err := f.svc.Signup(context.Background(), models.SignupRequest{
		Name:     name,
		Email:    email,
		Password: "secret1",
		Domain:   string(domain),
		Branch:   "CSE",
		Year:     2,
	})
	require.NoError(t, err)
	return u
}

func TestSignupAssignsTemplate(t *testing.T) {
	f := newFixture(t)
	u := f.signup(t, "Ann", "Ann@Example.com", models.DomainAIML)

	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, models.RoleStudent, u.Role)
	assert.Equal(t, 0, u.Points)
	require.Len(t, u.Tasks, 8)
	for _, task := range u.Tasks {
		assert.False(t, task.Completed)
		assert.Equal(t, 100, task.Points)
	}
	assert.Equal(t, "Foundational Python Skills: Core Syntax, Data Structures, and Functions", u.Tasks[0].Name)

	stored, err := f.repo.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	header, rows, ok := f.doc.Snapshot("AIML")
	require.True(t, ok)
	assert.Len(t, header, len(leaderboard.BaseHeader)+8)
	require.Len(t, rows, 1)
	assert.Equal(t, "ann@example.com", rows[0][2])
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)

	valid := models.SignupRequest{Name: "Ann", Email: "ann@x.io", Password: "secret1", Domain: "webd"}

	tests := []struct {
		name  string
		edit  func(r *models.SignupRequest)
		field string
	}{
		{"missing name", func(r *models.SignupRequest) { r.Name = "   " }, "name"},
		{"bad email", func(r *models.SignupRequest) { r.Email = "ann@x" }, "email"},
		{"email with space", func(r *models.SignupRequest) { r.Email = "a nn@x.io" }, "email"},
		{"short password", func(r *models.SignupRequest) { r.Password = "12345" }, "password"},
		{"unknown domain", func(r *models.SignupRequest) { r.Domain = "cloud" }, "domain"},
		{"missing domain", func(r *models.SignupRequest) { r.Domain = "" }, "domain"},
		{"year too high", func(r *models.SignupRequest) { r.Year = 5 }, "year"},
		{"negative year", func(r *models.SignupRequest) { r.Year = -1 }, "year"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.edit(&req)

			_, err := f.svc.Signup(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}

	_, err := f.svc.Signup(context.Background(), models.SignupRequest{Name: "A", Email: "a@x.io", Password: "12345", Domain: "webd"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Password must be at least 6 characters", verr.Fields["password"])
}

func TestSignupDomainIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Signup(context.Background(), models.SignupRequest{Name: "Ann", Email: "ann@x.io", Password: "secret1", Domain: "DSA"})
	require.NoError(t, err)
	assert.Equal(t, models.DomainDSA, u.Domain)
	assert.Len(t, u.Tasks, 18)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)

	_, err := f.svc.Signup(context.Background(), models.SignupRequest{Name: "Other", Email: "ANN@x.io", Password: "secret1", Domain: "dsa"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "ANN@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.Role)

	got, err := f.svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "ann@x.io", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "nobody@x.io", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSetTaskCompletionTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)

	steps := []struct {
		task      int
		completed bool
		want      int
	}{
		{0, true, 100},
		{0, true, 100},
		{3, true, 200},
		{9, true, 300},
		{0, false, 200},
		{0, false, 200},
		{3, false, 100},
	}

	for _, step := range steps {
		total, err := f.svc.SetTaskCompletion(ctx, u.ID, u.Tasks[step.task].ID, step.completed)
		require.NoError(t, err)
		assert.Equal(t, step.want, total)
	}

	stored, err := f.repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.CalculatePoints(), stored.Points)

	_, rows, _ := f.doc.Snapshot("WEBD")
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0][6])
}

func TestSetTaskCompletionForeignTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)
	bob := f.signup(t, "Bob", "bob@x.io", models.DomainWebDev)

	_, err := f.svc.SetTaskCompletion(ctx, ann.ID, bob.Tasks[0].ID, true)
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMirrorFailureKeepsLocalChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "Ann", "ann@x.io", models.DomainDSA)

	f.doc.SetFailure(errors.New("sheets unavailable"))

	total, err := f.svc.SetTaskCompletion(ctx, u.ID, u.Tasks[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 100, total)

	stored, err := f.repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Points)
	assert.True(t, stored.Tasks[0].Completed)
}

func TestSignupWithoutSynchronizer(t *testing.T) {
	loader, err := templates.NewDefaultLoader()
	require.NoError(t, err)

	sync := leaderboard.New(func(ctx context.Context) (sheets.Document, error) { return nil, sheets.ErrMissingCredentials })
	require.Error(t, sync.Init(context.Background()))

	svc := NewService(storage.NewMemoryRepository(), loader, auth.NewIssuer("s", "t", time.Hour), sync, Options{})
	u, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Ann", Email: "ann@x.io", Password: "secret1", Domain: "webd"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = svc.Leaderboard(context.Background(), models.DomainWebDev)
	require.ErrorIs(t, err, leaderboard.ErrNotInitialized)
}

func TestRequestCooldown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)

	first, err := f.svc.SubmitRequest(ctx, u, models.CreatePointRequest{TaskDescription: "Finished the quiz app"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, first.Status)

	f.clock = f.clock.Add(15*time.Hour + 59*time.Minute)
	_, err = f.svc.SubmitRequest(ctx, u, models.CreatePointRequest{TaskDescription: "Again"})
	require.ErrorIs(t, err, ErrCooldownActive)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, time.Minute, cooldown.Remaining)
	assert.Equal(t, "request cooldown active", err.Error())

	f.clock = f.clock.Add(time.Minute)
	_, err = f.svc.SubmitRequest(ctx, u, models.CreatePointRequest{TaskDescription: "Exactly sixteen hours later"})
	require.NoError(t, err)
}

func TestSubmitRequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)

	_, err := f.svc.SubmitRequest(ctx, u, models.CreatePointRequest{TaskDescription: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Task description is required", verr.Fields["taskDescription"])

	negative := -5
	_, err = f.svc.SubmitRequest(ctx, u, models.CreatePointRequest{TaskDescription: "x", PointsRequested: &negative})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "pointsRequested")
}

func TestDecideRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.signup(t, "Ann", "ann@x.io", models.DomainWebDev)
	bob := f.signup(t, "Bob", "bob@x.io", models.DomainWebDev)

	annReq, err := f.svc.SubmitRequest(ctx, ann, models.CreatePointRequest{TaskDescription: "Quiz app"})
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	bobReq, err := f.svc.SubmitRequest(ctx, bob, models.CreatePointRequest{TaskDescription: "Backend course"})
	require.NoError(t, err)

	pending, err := f.svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Ann", pending[0].StudentName)

	// Validation
	_, err = f.svc.DecideRequest(ctx, annReq.ID, models.DecideRequest{Status: "maybe"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	_, err = f.svc.DecideRequest(ctx, annReq.ID, models.DecideRequest{Status: models.RequestAccepted})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customPoints")
	negative := -1
	_, err = f.svc.DecideRequest(ctx, annReq.ID, models.DecideRequest{Status: models.RequestAccepted, CustomPoints: &negative})
	require.ErrorAs(t, err, &verr)

	points := 40
	student, err := f.svc.DecideRequest(ctx, annReq.ID, models.DecideRequest{Status: models.RequestAccepted, CustomPoints: &points})
	require.NoError(t, err)
	assert.Equal(t, 40, student.Points)

	student, err = f.svc.DecideRequest(ctx, bobReq.ID, models.DecideRequest{Status: models.RequestDeclined})
	require.NoError(t, err)
	assert.Equal(t, 0, student.Points)

	pending, err = f.svc.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.svc.DecideRequest(ctx, annReq.ID, models.DecideRequest{Status: models.RequestDeclined})
	require.ErrorIs(t, err, ErrRequestNotFound)

	// Grants survive later task toggles
	total, err := f.svc.SetTaskCompletion(ctx, ann.ID, ann.Tasks[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 140, total)

	entries, err := f.svc.Leaderboard(ctx, models.DomainWebDev)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", entries[0].Email)
	assert.Equal(t, 140, entries[0].Points)
}

func TestAssignPoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.signup(t, "A", "a@x.io", models.DomainWebDev)
	b := f.signup(t, "B", "b@x.io", models.DomainWebDev)

	entries, err := f.svc.Leaderboard(ctx, models.DomainWebDev)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a@x.io", entries[0].Email)

	student, err := f.svc.AssignPoints(ctx, models.AssignPointsRequest{Email: "B@x.io", Points: 20})
	require.NoError(t, err)
	assert.Equal(t, b.ID, student.ID)
	assert.Equal(t, 20, student.Points)

	entries, err = f.svc.Leaderboard(ctx, models.DomainWebDev)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b@x.io", entries[0].Email)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, a.Email, entries[1].Email)
	assert.Equal(t, 2, entries[1].Rank)

	var verr *ValidationError
	_, err = f.svc.AssignPoints(ctx, models.AssignPointsRequest{UserID: a.ID, Points: 0})
	require.ErrorAs(t, err, &verr)
	_, err = f.svc.AssignPoints(ctx, models.AssignPointsRequest{Points: 5})
	require.ErrorAs(t, err, &verr)

	_, err = f.svc.AssignPoints(ctx, models.AssignPointsRequest{UserID: "missing", Points: 5})
	require.ErrorIs(t, err, ErrUserNotFound)

	admin, _, err := f.svc.EnsureAdmin(ctx, "admin@x.io", "adminpass")
	require.NoError(t, err)
	_, err = f.svc.AssignPoints(ctx, models.AssignPointsRequest{UserID: admin.ID, Points: 5})
	require.ErrorAs(t, err, &verr)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin, created, err := f.svc.EnsureAdmin(ctx, "Admin@x.io", "adminpass")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, models.DomainNone, admin.Domain)
	assert.Empty(t, admin.Tasks)

	again, created, err := f.svc.EnsureAdmin(ctx, "admin@x.io", "adminpass")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "admin@x.io", Password: "adminpass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.Role)

	students, err := f.svc.StudentLeaderboard(ctx, models.DomainNone)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestStudentLeaderboardAndRebuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.signup(t, "A", "a@x.io", models.DomainDSA)
	f.signup(t, "B", "b@x.io", models.DomainDSA)
	f.signup(t, "C", "c@x.io", models.DomainAIML)

	_, err := f.svc.SetTaskCompletion(ctx, a.ID, a.Tasks[1].ID, true)
	require.NoError(t, err)

	entries, err := f.svc.StudentLeaderboard(ctx, models.DomainDSA)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a@x.io", entries[0].Email)
	assert.Equal(t, 1, entries[0].Rank)

	all, err := f.svc.StudentLeaderboard(ctx, models.DomainNone)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	students, err := f.svc.DomainTasks(ctx, models.DomainDSA)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Len(t, students[0].Tasks, 18)

	// Rebuild after a lost write repairs the mirror
	f.doc.SetFailure(errors.New("offline"))
	_, err = f.svc.AssignPoints(ctx, models.AssignPointsRequest{UserID: a.ID, Points: 500})
	require.NoError(t, err)
	f.doc.SetFailure(nil)

	_, rows, _ := f.doc.Snapshot("DSA")
	assert.NotEqual(t, "600", rows[0][6])

	require.NoError(t, f.svc.Rebuild(ctx, models.DomainDSA))
	mirrored, err := f.svc.Leaderboard(ctx, models.DomainDSA)
	require.NoError(t, err)
	assert.Equal(t, 600, mirrored[0].Points)
}
