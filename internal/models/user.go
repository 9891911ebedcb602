// Package models contains data structures for the application's domain models.
package models

import "time"

// Role identifies what a user is allowed to do in the classroom.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleAdmin      Role = "admin"
	RoleCoreMember Role = "core_member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin, RoleCoreMember:
		return true
	}
	return false
}

// ModeratorRoles lists the roles with elevated view/edit/delete rights.
var ModeratorRoles = []Role{RoleAdmin, RoleTeacher, RoleCoreMember}

// User represents an account on the platform.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"type:varchar(32);not null;index" json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsModerator reports whether the user is an admin, teacher or core member.
func (u *User) IsModerator() bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case RoleAdmin, RoleTeacher, RoleCoreMember:
		return true
	}
	return false
}
