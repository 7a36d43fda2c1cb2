package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ExportHeader = []string{"id", "email", "name", "role", "created_at"}

func (u User) ExportRow() []string {
	return []string{u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt.UTC().Format(time.RFC3339)}
}

type Filter struct {
	Q    string
	Role Role
}

type CreateInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UpdateInput only touches the fields that are set.
type UpdateInput struct {
	Name *string `json:"name"`
	Role *Role   `json:"role"`
}

// NormalizeEmail is applied before every lookup and insert so that emails
// compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
