package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

type paymentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPaymentRepository creates a PaymentRepository
func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{
		db:  db,
		now: time.Now,
	}
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.SessionID, p.PackageID, p.Amount, p.Credits, p.Status, toMillis(p.CreatedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return domain.NewAlreadyExistsError("Payment", p.SessionID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*entity.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id = ?`, sessionID)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("Payment", sessionID)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// Complete flips created → succeeded and credits the user inside one transaction
func (r *paymentRepository) Complete(ctx context.Context, paymentID string) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var credits int
	err = tx.QueryRowContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ? RETURNING user_id, credits`,
		entity.PaymentSucceeded, paymentID, entity.PaymentCreated,
	).Scan(&userID, &credits)

	granted := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		granted = false
		if err := tx.QueryRowContext(ctx, `SELECT user_id FROM payments WHERE id = ?`, paymentID).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, false, domain.NewNotFoundError("Payment", paymentID)
			}
			return 0, false, fmt.Errorf("failed to get payment: %w", err)
		}
	case err != nil:
		return 0, false, fmt.Errorf("failed to complete payment: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET credits = credits + ?, updated_at = ? WHERE id = ?`,
			credits, toMillis(r.now()), userID,
		); err != nil {
			return 0, false, fmt.Errorf("failed to grant credits: %w", err)
		}
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit payment: %w", err)
	}
	return balance, granted, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return out, nil
}
