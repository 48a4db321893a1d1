package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered collaborator.
type User struct {
	ID           uuid.UUID `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
