package entity

type Role string

const (
	RoleExaminer Role = "examiner"
	RoleStudent  Role = "student"
)

type UserLoginData struct {
	ID       string
	Username string
	Email    string
	Role     Role
}

func (u UserLoginData) IsExaminer() bool {
	return u.Role == RoleExaminer
}
