package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// fallback when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/devroom.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/devroom.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		file_tree TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (owner_id, name)
	);

	CREATE TABLE IF NOT EXISTS project_users (
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (project_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		body TEXT NOT NULL,
		is_ai INTEGER NOT NULL DEFAULT 0,
		ts INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_project_ts ON messages(project_id, ts);
	CREATE INDEX IF NOT EXISTS idx_project_users_user ON project_users(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	id := uuid.New()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), email, passwordHash, now, now)
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := row.Scan(
		&idStr,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	return user, nil
}

// ListUsers retrieves all users except the excluded one.
func (s *SQLiteStore) ListUsers(ctx context.Context, exclude uuid.UUID) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id <> ?
		ORDER BY email
	`, exclude.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var idStr string
		if err := rows.Scan(
			&idStr,
			&user.Email,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		user.ID = uuid.MustParse(idStr)
		users = append(users, user)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateProject creates a new project with the owner as its first
// collaborator.
func (s *SQLiteStore) CreateProject(ctx context.Context, name string, owner uuid.UUID) (*models.Project, error) {
	id := uuid.New()
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, file_tree, created_at, updated_at)
		VALUES (?, ?, ?, '{}', ?, ?)
	`, id.String(), name, owner.String(), now, now); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO project_users (project_id, user_id) VALUES (?, ?)
	`, id.String(), owner.String()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetProject(ctx, id)
}

// GetProject retrieves a project with its collaborator list.
func (s *SQLiteStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project := &models.Project{}
	var idStr, ownerStr string
	var treeJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, file_tree, created_at, updated_at
		FROM projects WHERE id = ?
	`, id.String()).Scan(
		&idStr,
		&project.Name,
		&ownerStr,
		&treeJSON,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	project.ID = uuid.MustParse(idStr)
	project.OwnerID = uuid.MustParse(ownerStr)
	if err := unmarshalTree(treeJSON, &project.FileTree); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM project_users WHERE project_id = ?
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userStr string
		if err := rows.Scan(&userStr); err != nil {
			return nil, err
		}
		project.UserIDs = append(project.UserIDs, uuid.MustParse(userStr))
	}
	return project, rows.Err()
}

// ListProjectsForUser retrieves the projects a user collaborates on.
func (s *SQLiteStore) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id
		FROM projects p
		JOIN project_users pu ON pu.project_id = p.id
		WHERE pu.user_id = ?
		ORDER BY p.updated_at DESC
	`, userID.String())
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, uuid.MustParse(idStr))
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
func (s *SQLiteStore) AddProjectUsers(ctx context.Context, id uuid.UUID, userIDs []uuid.UUID) (*models.Project, error) {
	for _, userID := range userIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO project_users (project_id, user_id)
			VALUES (?, ?)
		`, id.String(), userID.String()); err != nil {
			return nil, err
		}
	}
	return s.GetProject(ctx, id)
}

// UpdateFileTree replaces the stored tree for a project wholesale.
func (s *SQLiteStore) UpdateFileTree(ctx context.Context, id uuid.UUID, tree filetree.Tree) error {
	data, err := marshalTree(tree)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET file_tree = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, string(data), id.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountProjects returns the total number of projects.
func (s *SQLiteStore) CountProjects(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

// SaveMessage appends a chat event to the durable log.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	isAI := 0
	if msg.IsAI {
		isAI = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, sender_id, sender_email, body, is_ai, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ProjectID, msg.SenderID, msg.SenderEmail, msg.Body, isAI, msg.Timestamp)
	return err
}

// GetProjectMessages retrieves up to limit messages for a project,
// ordered oldest-to-newest.
func (s *SQLiteStore) GetProjectMessages(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, sender_id, sender_email, body, is_ai, ts
		FROM messages
		WHERE project_id = ?
		ORDER BY ts ASC
		LIMIT ?
	`, projectID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var isAI int
		if err := rows.Scan(
			&msg.ID,
			&msg.ProjectID,
			&msg.SenderID,
			&msg.SenderEmail,
			&msg.Body,
			&isAI,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		msg.IsAI = isAI == 1
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the total number of persisted messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
