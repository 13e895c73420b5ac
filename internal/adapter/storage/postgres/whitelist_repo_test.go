package postgres

import (
	"context"
	"testing"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitelistRepo_Set(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWhitelistRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	route := &domain.WhitelistRoute{Currency: "USDC", Route: "pair-usdc", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO whitelist_routes").
		WithArgs("USDC", "pair-usdc", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Set(context.Background(), route)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhitelistRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWhitelistRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM whitelist_routes WHERE currency").
		WithArgs("USDC").
		WillReturnRows(pgxmock.NewRows([]string{"currency", "route", "created_at", "updated_at"}).
			AddRow("USDC", "pair-usdc", now, now))

	route, err := repo.Get(context.Background(), "USDC")
	require.NoError(t, err)
	require.NotNil(t, route)
	assert.Equal(t, "pair-usdc", route.Route)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhitelistRepo_Get_NotWhitelisted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWhitelistRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM whitelist_routes WHERE currency").
		WithArgs("SHIB").
		WillReturnRows(pgxmock.NewRows([]string{"currency", "route", "created_at", "updated_at"}))

	route, err := repo.Get(context.Background(), "SHIB")
	require.NoError(t, err)
	assert.Nil(t, route)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWhitelistRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWhitelistRepo(mock)

	mock.ExpectExec("DELETE FROM whitelist_routes").
		WithArgs("USDC").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = repo.Delete(context.Background(), "USDC")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
