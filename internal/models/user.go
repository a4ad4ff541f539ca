package models

const (
	RoleLearner    = "learner"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User est l'identité fournie par le jeton, jamais revérifiée ici
type User struct {
	ID    string `json:"user_id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

func (u User) CanGrade() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}
