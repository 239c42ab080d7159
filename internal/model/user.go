package model

import "time"

// Role роль пользователя в системе
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole проверяет что строка является известной ролью
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// TeacherProfile профиль преподавателя, id совпадает с users.id
type TeacherProfile struct {
	ID  int64  `json:"id"`
	Bio string `json:"bio"`
}

// IsActiveTeacher - пользователь с ролью преподавателя, не удалён
func (u *User) IsActiveTeacher() bool {
	return u != nil && u.Role == RoleTeacher && !u.IsDeleted
}
