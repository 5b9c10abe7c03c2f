package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"space-notes-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// PostgreSQL error codes we translate
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02" // malformed uuid in a lookup
)

// PostgresDatabase is the lib/pq backed store.
type PostgresDatabase struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDatabase(dsn string, logger *zap.Logger) (DatabaseInterface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&connect_timeout=10"),
		dsn,
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sql.Open("postgres", strategy)
		if err != nil {
			logger.Warn("postgres open failed", zap.Int("strategy", i+1), zap.Error(err))
			lastErr = err
			continue
		}

		// small pool, serverless instances are many and short lived
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			logger.Warn("postgres ping failed", zap.Int("strategy", i+1), zap.Error(err))
			db.Close()
			lastErr = err
			continue
		}

		logger.Info("postgres connection established", zap.Int("strategy", i+1))
		return &PostgresDatabase{db: db, logger: logger}, nil
	}

	return nil, fmt.Errorf("connect to postgres with all strategies: %w", lastErr)
}

// addConnectionParams appends params in the DSN's own syntax.
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}
	// key=value DSNs take space separated params
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// ApplySchema runs the embedded DDL. Every statement is idempotent.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// mapError folds driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation, pgInvalidText:
			return ErrNotFound
		}
	}
	return err
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ==== users ====

const userColumns = `id, COALESCE(email, ''), COALESCE(phone, ''), display_name, COALESCE(username, ''),
	avatar_type, avatar_data, role, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.DisplayName, &u.Username,
		&u.AvatarType, &u.AvatarData, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.UserRoleUser
	}
	query := `
		INSERT INTO users (id, email, phone, display_name, username, avatar_type, avatar_data, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, user.ID, nullable(user.Email), nullable(user.Phone),
		user.DisplayName, nullable(user.Username), user.AvatarType, user.AvatarData, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (db *PostgresDatabase) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return scanUser(db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
}

func (db *PostgresDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, phone = $3, display_name = $4, username = $5,
		    avatar_type = $6, avatar_data = $7, role = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, user.ID, nullable(user.Email), nullable(user.Phone),
		user.DisplayName, nullable(user.Username), user.AvatarType, user.AvatarData, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

// ==== spaces ====

const spaceColumns = `s.id, s.name, s.description, s.emoji, s.invite_code, s.created_by, s.created_at, s.updated_at`

func scanSpace(row rowScanner, extra ...interface{}) (*models.Space, error) {
	var s models.Space
	dest := append([]interface{}{&s.ID, &s.Name, &s.Description, &s.Emoji, &s.InviteCode,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func (db *PostgresDatabase) CreateSpace(ctx context.Context, space *models.Space) error {
	if space.ID == "" {
		space.ID = uuid.NewString()
	}
	query := `
		INSERT INTO spaces (id, name, description, emoji, invite_code, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, space.ID, space.Name, space.Description, space.Emoji,
		space.InviteCode, space.CreatedBy).Scan(&space.CreatedAt, &space.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) GetSpace(ctx context.Context, spaceID string) (*models.Space, error) {
	return scanSpace(db.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces s WHERE s.id = $1`, spaceID))
}

func (db *PostgresDatabase) GetSpaceByInviteCode(ctx context.Context, code string) (*models.Space, error) {
	return scanSpace(db.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces s WHERE s.invite_code = $1`, code))
}

func (db *PostgresDatabase) ListSpacesForUser(ctx context.Context, userID string) ([]models.SpaceWithRole, error) {
	query := `
		SELECT ` + spaceColumns + `, m.role,
		       (SELECT COUNT(*) FROM space_members c WHERE c.space_id = s.id)
		FROM spaces s
		JOIN space_members m ON m.space_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.updated_at DESC
	`
	rows, err := db.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.SpaceWithRole{}
	for rows.Next() {
		var role models.MemberRole
		var count int
		s, err := scanSpace(rows, &role, &count)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SpaceWithRole{Space: *s, Role: role, MemberCount: count})
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateSpace(ctx context.Context, space *models.Space) error {
	query := `
		UPDATE spaces SET name = $2, description = $3, emoji = $4, invite_code = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, space.ID, space.Name, space.Description, space.Emoji, space.InviteCode).
		Scan(&space.CreatedAt, &space.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) DeleteSpace(ctx context.Context, spaceID string) error {
	return affected(db.db.ExecContext(ctx, `DELETE FROM spaces WHERE id = $1`, spaceID))
}

// ==== memberships ====

func (db *PostgresDatabase) AddMember(ctx context.Context, m *models.Membership) error {
	if m.NotificationLevel == "" {
		m.NotificationLevel = models.NotifyAll
	}
	query := `
		INSERT INTO space_members (space_id, user_id, role, notification_level)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at
	`
	err := db.db.QueryRowContext(ctx, query, m.SpaceID, m.UserID, m.Role, m.NotificationLevel).Scan(&m.JoinedAt)
	return mapError(err)
}

func (db *PostgresDatabase) GetMembership(ctx context.Context, spaceID, userID string) (*models.Membership, error) {
	query := `
		SELECT space_id, user_id, role, notification_level, joined_at
		FROM space_members WHERE space_id = $1 AND user_id = $2
	`
	var m models.Membership
	err := db.db.QueryRowContext(ctx, query, spaceID, userID).
		Scan(&m.SpaceID, &m.UserID, &m.Role, &m.NotificationLevel, &m.JoinedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (db *PostgresDatabase) ListMembers(ctx context.Context, spaceID string) ([]models.MemberProfile, error) {
	query := `
		SELECT m.space_id, m.user_id, m.role, m.notification_level, m.joined_at,
		       u.display_name, COALESCE(u.username, ''), u.avatar_type, u.avatar_data
		FROM space_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.space_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := db.db.QueryContext(ctx, query, spaceID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.MemberProfile{}
	for rows.Next() {
		var p models.MemberProfile
		if err := rows.Scan(&p.SpaceID, &p.UserID, &p.Role, &p.NotificationLevel, &p.JoinedAt,
			&p.DisplayName, &p.Username, &p.AvatarType, &p.AvatarData); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateNotificationLevel(ctx context.Context, spaceID, userID string, level models.NotificationLevel) error {
	return affected(db.db.ExecContext(ctx,
		`UPDATE space_members SET notification_level = $3 WHERE space_id = $1 AND user_id = $2`,
		spaceID, userID, level))
}

// ==== messages ====

const messageColumns = `id, space_id, user_id, content, message_type, created_at, updated_at`

func scanMessage(row rowScanner) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.SpaceID, &m.UserID, &m.Content, &m.MessageType, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	m.Reactions = []models.Reaction{}
	return &m, nil
}

func (db *PostgresDatabase) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.MessageType == "" {
		msg.MessageType = models.MessageTypeText
	}
	query := `
		INSERT INTO messages (id, space_id, user_id, content, message_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, msg.ID, msg.SpaceID, msg.UserID, msg.Content, msg.MessageType).
		Scan(&msg.CreatedAt, &msg.UpdatedAt)
	msg.Reactions = []models.Reaction{}
	return mapError(err)
}

func (db *PostgresDatabase) GetMessage(ctx context.Context, spaceID, messageID string) (*models.Message, error) {
	m, err := scanMessage(db.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1 AND space_id = $2`, messageID, spaceID))
	if err != nil {
		return nil, err
	}
	byMessage, err := db.reactionsFor(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	if rs, ok := byMessage[m.ID]; ok {
		m.Reactions = rs
	}
	return m, nil
}

func (db *PostgresDatabase) ListMessages(ctx context.Context, spaceID string, q MessageQuery) ([]models.Message, error) {
	before := q.Before
	if before.IsZero() {
		before = time.Now().Add(time.Second)
	}
	limit := sql.NullInt64{Int64: int64(q.Limit), Valid: q.Limit > 0}

	// newest page first, then flipped to chronological order
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + ` FROM messages
			WHERE space_id = $1 AND created_at < $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) page
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.db.QueryContext(ctx, query, spaceID, before, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Message{}
	ids := []string{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	byMessage, err := db.reactionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if rs, ok := byMessage[out[i].ID]; ok {
			out[i].Reactions = rs
		}
	}
	return out, nil
}

func (db *PostgresDatabase) reactionsFor(ctx context.Context, messageIDs []string) (map[string][]models.Reaction, error) {
	query := `
		SELECT id, message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id::text = ANY($1)
		ORDER BY created_at ASC
	`
	rows, err := db.db.QueryContext(ctx, query, pq.Array(messageIDs))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make(map[string][]models.Reaction)
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.ID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, err
		}
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) DeleteMessage(ctx context.Context, messageID string) error {
	return affected(db.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, messageID))
}

func (db *PostgresDatabase) AddReaction(ctx context.Context, r *models.Reaction) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	query := `
		INSERT INTO message_reactions (id, message_id, user_id, emoji)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := db.db.QueryRowContext(ctx, query, r.ID, r.MessageID, r.UserID, r.Emoji).Scan(&r.CreatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	return affected(db.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji))
}

// ==== notes ====

const noteColumns = `id, space_id, author_id, title, content, status, published_at, created_at, updated_at`

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	if err := row.Scan(&n.ID, &n.SpaceID, &n.AuthorUser, &n.Title, &n.Content, &n.Status,
		&n.PublishedAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &n, nil
}

func (db *PostgresDatabase) CreateNote(ctx context.Context, n *models.Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	query := `
		INSERT INTO notes (id, space_id, author_id, title, content, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, n.ID, n.SpaceID, n.AuthorUser, n.Title, n.Content, n.Status, n.PublishedAt).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) GetNote(ctx context.Context, spaceID, noteID string) (*models.Note, error) {
	return scanNote(db.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND space_id = $2`, noteID, spaceID))
}

func (db *PostgresDatabase) ListNotes(ctx context.Context, spaceID string) ([]models.Note, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE space_id = $1 ORDER BY updated_at DESC`, spaceID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateNote(ctx context.Context, n *models.Note) error {
	query := `
		UPDATE notes SET title = $2, content = $3, status = $4, published_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, n.ID, n.Title, n.Content, n.Status, n.PublishedAt).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) DeleteNote(ctx context.Context, noteID string) error {
	return affected(db.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, noteID))
}

// ==== lessons ====

const lessonColumns = `id, space_id, author_id, title, description, content, difficulty, estimated_minutes,
	status, published_at, created_at, updated_at`

func scanLesson(row rowScanner) (*models.Lesson, error) {
	var l models.Lesson
	if err := row.Scan(&l.ID, &l.SpaceID, &l.AuthorUser, &l.Title, &l.Description, &l.Content,
		&l.Difficulty, &l.EstimatedMinutes, &l.Status, &l.PublishedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &l, nil
}

func (db *PostgresDatabase) CreateLesson(ctx context.Context, l *models.Lesson) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
		INSERT INTO lessons (id, space_id, author_id, title, description, content, difficulty,
		                     estimated_minutes, status, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, l.ID, l.SpaceID, l.AuthorUser, l.Title, l.Description, l.Content,
		l.Difficulty, l.EstimatedMinutes, l.Status, l.PublishedAt).Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) GetLesson(ctx context.Context, spaceID, lessonID string) (*models.Lesson, error) {
	return scanLesson(db.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = $1 AND space_id = $2`, lessonID, spaceID))
}

func (db *PostgresDatabase) ListLessons(ctx context.Context, spaceID string) ([]models.Lesson, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE space_id = $1 ORDER BY updated_at DESC`, spaceID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := []models.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (db *PostgresDatabase) UpdateLesson(ctx context.Context, l *models.Lesson) error {
	query := `
		UPDATE lessons
		SET title = $2, description = $3, content = $4, difficulty = $5, estimated_minutes = $6,
		    status = $7, published_at = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, l.ID, l.Title, l.Description, l.Content, l.Difficulty,
		l.EstimatedMinutes, l.Status, l.PublishedAt).Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapError(err)
}

func (db *PostgresDatabase) DeleteLesson(ctx context.Context, lessonID string) error {
	return affected(db.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, lessonID))
}

func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

// Migrate applies the embedded schema over this connection.
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	return ApplySchema(ctx, db.db)
}
