package data

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocietyMock(t *testing.T) (SocietyModel, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return SocietyModel{DB: db}, mock
}

func TestResolveTenantCodeByCode(t *testing.T) {
	m, mock := newSocietyMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM societies WHERE code = $1")).
		WithArgs("green-meadows").
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("green-meadows"))

	code, err := m.ResolveTenantCode(context.Background(), "green-meadows")
	require.NoError(t, err)
	assert.Equal(t, "green-meadows", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveTenantCodeFallsBackToNumericID(t *testing.T) {
	m, mock := newSocietyMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM societies WHERE code = $1")).
		WithArgs("42").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM societies WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("green-meadows"))

	code, err := m.ResolveTenantCode(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "green-meadows", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveTenantCodeUnmapped(t *testing.T) {
	m, mock := newSocietyMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT code FROM societies WHERE code = $1")).
		WithArgs("mystery").
		WillReturnError(sql.ErrNoRows)

	_, err := m.ResolveTenantCode(context.Background(), "mystery")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveTenantCodeEmptyHint(t *testing.T) {
	m, _ := newSocietyMock(t)
	_, err := m.ResolveTenantCode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
