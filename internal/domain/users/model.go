package users

import "time"

// User es la cuenta del cuidador; dueño de sus care recipients.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string

	CreatedAt time.Time
}
