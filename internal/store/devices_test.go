package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalAddressByHashKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT logical_address FROM devices`).
		WithArgs("xEmn1GGIK/AYOz8zMQFMWWmsLD4=", DeviceStatusOnline).
		WillReturnRows(sqlmock.NewRows([]string{"logical_address"}).AddRow("DID-20161010010010488a8f7f"))

	repo := NewPostgresDeviceRepository(db)
	addr, err := repo.LogicalAddressByHashKey(context.Background(), "xEmn1GGIK/AYOz8zMQFMWWmsLD4=")
	require.NoError(t, err)
	assert.Equal(t, "DID-20161010010010488a8f7f", addr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogicalAddressByHashKey_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT logical_address FROM devices`).
		WithArgs("unknown", DeviceStatusOnline).
		WillReturnRows(sqlmock.NewRows([]string{"logical_address"}))

	repo := NewPostgresDeviceRepository(db)
	_, err = repo.LogicalAddressByHashKey(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestUpsertDevice_GeneratesID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO devices`).
		WithArgs(sqlmock.AnyArg(), "hash-1", "D1", DeviceStatusOnline).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresDeviceRepository(db)
	device := &Device{HashKey: "hash-1", LogicalAddress: "D1", Status: DeviceStatusOnline}
	require.NoError(t, repo.UpsertDevice(context.Background(), device))
	assert.NotEmpty(t, device.DeviceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportDevices_PartialFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO devices`).
		WithArgs(sqlmock.AnyArg(), "hash-1", "D1", DeviceStatusImported).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresDeviceRepository(db)
	devices := []*Device{
		{HashKey: "hash-1", LogicalAddress: "D1", Status: DeviceStatusImported},
		{HashKey: "", LogicalAddress: "D2", Status: DeviceStatusImported}, // 缺 hash key
	}
	imported, failed, err := repo.ImportDevices(context.Background(), devices)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, failed, 1)
	assert.Equal(t, "D2", failed[0].LogicalAddress)
}
