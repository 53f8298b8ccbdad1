package database

import (
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns         = `id, username, email, password_hash, credits, created_at, updated_at`
	chatColumns         = `id, user_id, message, response, created_at`
	notificationColumns = `id, user_id, message, read, created_at`
	paymentColumns      = `id, user_id, session_id, package_id, amount, credits, status, created_at`
)

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// scanUser converts a users row into entity.User
func scanUser(row rowScanner) (*entity.User, error) {
	var (
		u                entity.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Credits, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

// scanChat converts a chats row into entity.Chat
func scanChat(row rowScanner) (*entity.Chat, error) {
	var (
		c       entity.Chat
		created int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Message, &c.Response, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// scanNotification converts a notifications row into entity.Notification
func scanNotification(row rowScanner) (*entity.Notification, error) {
	var (
		n       entity.Notification
		created int64
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &created); err != nil {
		return nil, err
	}
	n.CreatedAt = fromMillis(created)
	return &n, nil
}

// scanPayment converts a payments row into entity.Payment
func scanPayment(row rowScanner) (*entity.Payment, error) {
	var (
		p       entity.Payment
		created int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.SessionID, &p.PackageID, &p.Amount, &p.Credits, &p.Status, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

// isConstraintError reports a UNIQUE or CHECK violation
func isConstraintError(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return true
	}
	return false
}
