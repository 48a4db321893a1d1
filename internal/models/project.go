package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/devroom-hq/devroom/internal/filetree"
)

// Project is one collaborative workspace. Its id doubles as the room id
// for the live broadcast channel.
type Project struct {
	ID        uuid.UUID     `json:"_id"`
	Name      string        `json:"name"`
	OwnerID   uuid.UUID     `json:"owner_id"`
	UserIDs   []uuid.UUID   `json:"users"`
	FileTree  filetree.Tree `json:"fileTree"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// HasUser reports whether the given user is a collaborator.
func (p *Project) HasUser(id uuid.UUID) bool {
	for _, u := range p.UserIDs {
		if u == id {
			return true
		}
	}
	return false
}
