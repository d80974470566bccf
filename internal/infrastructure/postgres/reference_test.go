package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

type fakeDB struct {
	row     fakeRow
	sql     string
	args    []any
	execSQL string
	execErr error
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	return pgconn.CommandTag{}, f.execErr
}

func TestFindPSARecord_Match(t *testing.T) {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: []any{int64(7), "JUAN", "", "DELACRUZ", "Male", dob, dob}}}

	rec, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindPSARecord(context.Background(), "JUAN", "DELACRUZ", "Male", "1990-01-01")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "DELACRUZ", rec.LastName)
	assert.Equal(t, []any{"JUAN", "DELACRUZ", "Male", dob}, db.args)
}

func TestFindPSARecord_NoRowsIsNil(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

	rec, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindPSARecord(context.Background(), "JUAN", "DELACRUZ", "Male", "1990-01-01")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindPSARecord_UnparseableDOBIsNoMatch(t *testing.T) {
	db := &fakeDB{}

	rec, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindPSARecord(context.Background(), "JUAN", "DELACRUZ", "Male", "")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, db.sql)
}

func TestFindPSARecord_QueryError(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("conn reset")}}

	_, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindPSARecord(context.Background(), "JUAN", "DELACRUZ", "Male", "1990-01-01")
	assert.ErrorContains(t, err, "conn reset")
}

func TestFindVoterRecord(t *testing.T) {
	now := time.Now()
	db := &fakeDB{row: fakeRow{values: []any{int64(3), "0012A", "MARIA", "", "SANTOS", now}}}

	rec, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindVoterRecord(context.Background(), "0012A", "MARIA", "SANTOS")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "0012A", rec.PrecinctNumber)
	assert.Equal(t, []any{"0012A", "MARIA", "SANTOS"}, db.args)
}

func TestFindVoterRecord_NoRowsIsNil(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

	rec, err := NewReferenceRepo(db, zaptest.NewLogger(t)).
		FindVoterRecord(context.Background(), "0012A", "MARIA", "SANTOS")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewReferenceRepo(db, zaptest.NewLogger(t)).EnsureSchema(context.Background()))
	assert.Contains(t, db.execSQL, "CREATE TABLE IF NOT EXISTS psa_records")

	db.execErr = errors.New("permission denied")
	assert.Error(t, NewReferenceRepo(db, zaptest.NewLogger(t)).EnsureSchema(context.Background()))
}
