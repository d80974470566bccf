// Package postgres reads the reference registries (PSA birth records and the voter
// list) that verification attempts are cross-checked against.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ReferenceRepo looks up reference records. Lookups return (nil, nil) when there
// is no match.
type ReferenceRepo struct {
	db     querier
	logger *zap.Logger
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func NewReferenceRepo(db querier, logger *zap.Logger) *ReferenceRepo {
	return &ReferenceRepo{db: db, logger: logger}
}

// EnsureSchema creates the reference tables if they are missing.
func (r *ReferenceRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply reference schema: %w", err)
	}
	return nil
}

const findPSA = `
	SELECT id, first_name, middle_name, last_name, sex, date_of_birth, created_at
	FROM psa_records
	WHERE upper(first_name) = upper($1)
	  AND upper(last_name) = upper($2)
	  AND lower(sex) = lower($3)
	  AND date_of_birth = $4
	LIMIT 1
`

// FindPSARecord matches on first name, last name, sex and date of birth.
// Names and sex compare case-insensitively; dob is an ISO date.
func (r *ReferenceRepo) FindPSARecord(ctx context.Context, firstName, lastName, sex, dob string) (*domain.PSARecord, error) {
	day, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		return nil, nil
	}
	var rec domain.PSARecord
	err = r.db.QueryRow(ctx, findPSA, firstName, lastName, sex, day).
		Scan(&rec.ID, &rec.FirstName, &rec.MiddleName, &rec.LastName, &rec.Sex, &rec.DateOfBirth, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to query psa record", zap.Error(err))
		return nil, fmt.Errorf("find psa record: %w", err)
	}
	return &rec, nil
}

const findVoter = `
	SELECT id, precinct_number, first_name, middle_name, last_name, created_at
	FROM voter_records
	WHERE precinct_number = $1
	  AND upper(first_name) = upper($2)
	  AND upper(last_name) = upper($3)
	LIMIT 1
`

func (r *ReferenceRepo) FindVoterRecord(ctx context.Context, precinct, firstName, lastName string) (*domain.VoterRecord, error) {
	var rec domain.VoterRecord
	err := r.db.QueryRow(ctx, findVoter, precinct, firstName, lastName).
		Scan(&rec.ID, &rec.PrecinctNumber, &rec.FirstName, &rec.MiddleName, &rec.LastName, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("failed to query voter record", zap.Error(err))
		return nil, fmt.Errorf("find voter record: %w", err)
	}
	return &rec, nil
}
