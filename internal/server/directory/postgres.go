package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/dbx"
	"github.com/locktalk/locktalk/internal/server/directory/migrations"
	"github.com/pressly/goose/v3"
)

// PostgresRepository is the production directory backend (pgx stdlib driver).
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// RunMigrations sets up goose with the embedded migrations and applies them.
func (r *PostgresRepository) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, r.db, ".")
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var taken bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
			user.UserName).Scan(&taken)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if taken {
			return common.ErrDuplicateName
		}

		query :=
			`INSERT INTO users (username, email, verifier, is_active)
			 VALUES ($1, $2, $3, TRUE)
			 RETURNING id, created_at
			 `
		err = tx.QueryRowContext(ctx, query,
			user.UserName, user.Email, user.Verifier).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		user.Active = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) FindByName(ctx context.Context, userName string) (*User, error) {
	query :=
		`SELECT id, username, email, verifier, is_active, created_at, COALESCE(last_login, 'epoch')
		 FROM users
		 WHERE username = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, userName))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query :=
		`SELECT id, username, email, verifier, is_active, created_at, COALESCE(last_login, 'epoch')
		 FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Exists(ctx context.Context, userName string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`,
		userName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.Verifier,
		&user.Active, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
