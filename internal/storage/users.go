package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"bsanalyzer/pkg/contracts/domain"
)

// User is a company account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CompanyID    string    `db:"company_id"`
	Approved     bool      `db:"approved"`
	CreatedAt    time.Time `db:"created_at"`
}

// Admin is an administrator account.
type Admin struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// UserStore provides user, admin and approval queries.
type UserStore struct {
	db     *DB
	logger *slog.Logger
}

// NewUserStore creates a store on an open database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db, logger: db.logger.With(slog.String("store", "users"))}
}

// CreateUserWithApproval inserts an unapproved user and, unless one already
// exists, a pending approval for its company. Both happen in one
// transaction.
func (s *UserStore) CreateUserWithApproval(ctx context.Context, username, passwordHash, companyID string) (*User, error) {
	var user *User
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO users (username, password_hash, company_id, approved, created_at)
			 VALUES (?, ?, ?, ?, ?) RETURNING id`),
			username, passwordHash, companyID, false, now).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO pending_approvals (company_id, requested_by, requested_at)
			 VALUES (?, ?, ?) ON CONFLICT (company_id) DO NOTHING`),
			companyID, username, now)
		if err != nil {
			return fmt.Errorf("insert pending approval: %w", err)
		}

		user = &User{
			ID:           id,
			Username:     username,
			PasswordHash: passwordHash,
			CompanyID:    companyID,
			CreatedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User created",
		slog.String("username", username),
		slog.String("company_id", companyID))
	return user, nil
}

// FindUser returns the user with the given username.
func (s *UserStore) FindUser(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(
		`SELECT id, username, password_hash, company_id, approved, created_at
		 FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// FindAdmin returns the admin with the given username.
func (s *UserStore) FindAdmin(ctx context.Context, username string) (*Admin, error) {
	var admin Admin
	err := s.db.GetContext(ctx, &admin, s.db.Rebind(
		`SELECT id, username, password_hash FROM admin_users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &admin, nil
}

// SeedAdmin inserts an admin account unless the username already exists.
// It reports whether a row was inserted.
func (s *UserStore) SeedAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO admin_users (username, password_hash) VALUES (?, ?)
		 ON CONFLICT (username) DO NOTHING`), username, passwordHash)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Default admin created", slog.String("username", username))
	}
	return n > 0, nil
}

// ListPendingApprovals returns one entry per user of every pending company,
// oldest request first.
func (s *UserStore) ListPendingApprovals(ctx context.Context) ([]domain.PendingApproval, error) {
	approvals := []domain.PendingApproval{}
	err := s.db.SelectContext(ctx, &approvals,
		`SELECT pa.company_id, pa.requested_by, pa.requested_at, u.id AS user_id
		 FROM pending_approvals pa
		 JOIN users u ON pa.company_id = u.company_id
		 ORDER BY pa.requested_at, pa.id, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return approvals, nil
}

// ApproveCompany marks every user of the company approved and removes its
// pending approval. It returns the number of users approved.
func (s *UserStore) ApproveCompany(ctx context.Context, companyID string) (int64, error) {
	var approved int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE users SET approved = ? WHERE company_id = ?`), true, companyID)
		if err != nil {
			return fmt.Errorf("approve users: %w", err)
		}
		if approved, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("approve users: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`DELETE FROM pending_approvals WHERE company_id = ?`), companyID); err != nil {
			return fmt.Errorf("delete pending approval: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Company approved",
		slog.String("company_id", companyID),
		slog.Int64("users", approved))
	return approved, nil
}

// ApprovedCompanies returns the distinct ids of companies with at least one
// approved user, sorted.
func (s *UserStore) ApprovedCompanies(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		`SELECT DISTINCT company_id FROM users WHERE approved = ? ORDER BY company_id`), true)
	if err != nil {
		return nil, fmt.Errorf("list approved companies: %w", err)
	}
	return ids, nil
}

// CountUsers returns the number of registered users.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "Rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
