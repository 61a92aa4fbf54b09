package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewOutboxRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewOutboxRepository(pool, 30*time.Second)
	assert.NotNil(t, repo)
}

func TestMapSerialization(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	assert.ErrorIs(t, mapSerialization(serialization), ErrDateConflict)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapSerialization(other))

	assert.NoError(t, mapSerialization(nil))
}
