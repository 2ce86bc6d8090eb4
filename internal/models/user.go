package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleFaculty  Role = "Faculty"
	RoleAccounts Role = "Accounts"
)

func (r Role) Valid() bool {
	return r == RoleFaculty || r == RoleAccounts
}

type User struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Picture   string    `db:"picture"`
	Role      Role      `db:"role"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
