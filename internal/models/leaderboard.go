package models

// LeaderboardEntry is one ranked row as returned by the API
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Branch     string `json:"branch"`
	Year       int    `json:"year"`
	Attendance int    `json:"attendance"`
	Points     int    `json:"points"`
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,emailaddr,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Domain   string `json:"domain" validate:"required,oneof=webd aiml dsa"`
	Branch   string `json:"branch,omitempty" validate:"max=255"`
	Year     int    `json:"year,omitempty" validate:"omitempty,min=1,max=4"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// UpdateTaskRequest is the body of PUT /tasks/{taskId}
type UpdateTaskRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// Profile is the public view of the caller returned by /auth/me and /tasks
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Domain     Domain `json:"domain,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Year       int    `json:"year,omitempty"`
	Attendance int    `json:"attendance"`
	Points     int    `json:"points"`
}

// ProfileOf builds the public profile of a user
func ProfileOf(u *User) Profile {
	return Profile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Domain:     u.Domain,
		Branch:     u.Branch,
		Year:       u.Year,
		Attendance: u.Attendance,
		Points:     u.Points,
	}
}
