package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/metrics"
	"github.com/devroom-hq/devroom/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations creates the schema if it does not exist.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		owner_id UUID NOT NULL REFERENCES users(id),
		file_tree JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (owner_id, name)
	);

	CREATE TABLE IF NOT EXISTS project_users (
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		body TEXT NOT NULL,
		is_ai BOOLEAN NOT NULL DEFAULT FALSE,
		ts BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_project_ts ON messages(project_id, ts);
	CREATE INDEX IF NOT EXISTS idx_project_users_user ON project_users(user_id);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at, updated_at
	`, email, passwordHash).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers retrieves all users except the excluded one.
func (s *PostgresStore) ListUsers(ctx context.Context, exclude uuid.UUID) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id <> $1
		ORDER BY email
	`, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateProject creates a new project with the owner as its first
// collaborator.
func (s *PostgresStore) CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO projects (name, owner_id)
		VALUES ($1, $2)
		RETURNING id
	`, name, owner).Scan(&id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO project_users (project_id, user_id) VALUES ($1, $2)
	`, id, owner); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetProject(ctx, id)
}

// GetProject retrieves a project with its collaborator list.
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	start := time.Now()
	defer func() { metrics.DatabaseLatency.Observe(time.Since(start).Seconds()) }()

	project := &models.Project{}
	var treeJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, file_tree, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(
		&project.ID,
		&project.Name,
		&project.OwnerID,
		&treeJSON,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := unmarshalTree(treeJSON, &project.FileTree); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM project_users WHERE project_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		project.UserIDs = append(project.UserIDs, userID)
	}
	return project, rows.Err()
}

// ListProjectsForUser retrieves the projects a user collaborates on.
func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id
		FROM projects p
		JOIN project_users pu ON pu.project_id = p.id
		WHERE pu.user_id = $1
		ORDER BY p.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// AddProjectUsers adds collaborators to a project, ignoring duplicates.
func (s *PostgresStore) AddProjectUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) (*models.Project, error) {
	for _, userID := range userIDs {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO project_users (project_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, id, userID); err != nil {
			return nil, err
		}
	}
	return s.GetProject(ctx, id)
}

// UpdateFileTree replaces the stored tree for a project wholesale.
func (s *PostgresStore) UpdateFileTree(ctx context.Context, id uuid.UUID, tree filetree.Tree) error {
	data, err := marshalTree(tree)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects SET file_tree = $1, updated_at = now() WHERE id = $2
	`, data, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountProjects returns the total number of projects.
func (s *PostgresStore) CountProjects(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

// SaveMessage appends a chat event to the durable log.
func (s *PostgresStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	start := time.Now()
	defer func() { metrics.DatabaseLatency.Observe(time.Since(start).Seconds()) }()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, project_id, sender_id, sender_email, body, is_ai, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.ProjectID, msg.SenderID, msg.SenderEmail, msg.Body, msg.IsAI, msg.Timestamp)
	return err
}

// GetProjectMessages retrieves up to limit messages for a project,
// ordered oldest-to-newest.
func (s *PostgresStore) GetProjectMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, sender_id, sender_email, body, is_ai, ts
		FROM messages
		WHERE project_id = $1
		ORDER BY ts ASC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var pid uuid.UUID
		if err := rows.Scan(
			&msg.ID,
			&pid,
			&msg.SenderID,
			&msg.SenderEmail,
			&msg.Body,
			&msg.IsAI,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		msg.ProjectID = pid.String()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the total number of persisted messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func marshalTree(tree filetree.Tree) ([]byte, error) {
	if tree == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(tree)
}

func unmarshalTree(data []byte, tree *filetree.Tree) error {
	if len(data) == 0 {
		*tree = filetree.Tree{}
		return nil
	}
	return json.Unmarshal(data, tree)
}
