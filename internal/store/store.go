package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/models"
)

// DataStore defines the interface for durable storage of users, projects
// and chat history. Both PostgresStore and SQLiteStore implement it.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, exclude uuid.UUID) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Project operations
	CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error)
	AddProjectUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) (*models.Project, error)
	UpdateFileTree(ctx context.Context, id uuid.UUID, tree filetree.Tree) error
	CountProjects(ctx context.Context) (int64, error)

	// Message operations
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetProjectMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context) (int64, error)
}

// TreePersister adapts a DataStore to the reconciler's persistence
// collaborator interface.
type TreePersister struct {
	DB DataStore
}

// SaveFileTree replaces the stored tree for the project wholesale.
func (p TreePersister) SaveFileTree(ctx context.Context, projectID string, tree filetree.Tree) error {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", projectID, err)
	}
	return p.DB.UpdateFileTree(ctx, id, tree)
}
