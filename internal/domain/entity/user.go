package entity

import "time"

const (
	RoleStudent = "Student"
	RoleFaculty = "Faculty"
	RoleAdmin   = "Admin"
)

type UserProfile struct {
	UID        string `json:"uid" firestore:"uid"`
	Name       string `json:"name" firestore:"name"`
	Email      string `json:"email" firestore:"email"`
	Department string `json:"department" firestore:"department"`
	Year       string `json:"year,omitempty" firestore:"year,omitempty"` // Empty for faculty/admin
	Role       string `json:"role" firestore:"role"`

	CreatedAt time.Time `json:"created_at,omitempty" firestore:"createdAt,omitempty"`
}
