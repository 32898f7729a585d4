package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// 设备状态（与设备开通流程约定一致，只有在线设备参与遥测解析）
const (
	DeviceStatusImported = 1
	DeviceStatusOffline  = 2
	DeviceStatusOnline   = 3
)

// ErrDeviceNotFound 指定 hash key 没有对应的在线设备
var ErrDeviceNotFound = errors.New("device not found")

// Device 设备库存记录：endpoint hash 到逻辑地址的映射
type Device struct {
	DeviceID       string
	HashKey        string // 设备上报载荷里的 endpointKeyHash
	LogicalAddress string // 稳定的外部设备标识，同时用作 zabbix host 名
	Status         int
}

// DeviceRepository 设备库存仓储接口
type DeviceRepository interface {
	// LogicalAddressByHashKey 按 hash key 查在线设备的逻辑地址
	LogicalAddressByHashKey(ctx context.Context, hashKey string) (string, error)
	// UpsertDevice 单台设备入库（按 hash key 幂等）
	UpsertDevice(ctx context.Context, device *Device) error
	// ImportDevices 批量入库，返回成功条数和失败的记录
	ImportDevices(ctx context.Context, devices []*Device) (int, []*Device, error)
}

// PostgresDeviceRepository 设备库存Repository实现
type PostgresDeviceRepository struct {
	db *sql.DB
}

// NewPostgresDeviceRepository 创建设备库存Repository
func NewPostgresDeviceRepository(db *sql.DB) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

func (r *PostgresDeviceRepository) LogicalAddressByHashKey(ctx context.Context, hashKey string) (string, error) {
	var logicalAddress string
	err := r.db.QueryRowContext(ctx,
		`SELECT logical_address FROM devices WHERE device_hash_key = $1 AND status = $2`,
		hashKey, DeviceStatusOnline,
	).Scan(&logicalAddress)
	if err == sql.ErrNoRows {
		return "", ErrDeviceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query device by hash key: %w", err)
	}
	return logicalAddress, nil
}

func (r *PostgresDeviceRepository) UpsertDevice(ctx context.Context, device *Device) error {
	if device.DeviceID == "" {
		device.DeviceID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (device_id, device_hash_key, logical_address, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (device_hash_key)
		 DO UPDATE SET logical_address = EXCLUDED.logical_address, status = EXCLUDED.status`,
		device.DeviceID, device.HashKey, device.LogicalAddress, device.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", device.HashKey, err)
	}
	return nil
}

func (r *PostgresDeviceRepository) ImportDevices(ctx context.Context, devices []*Device) (int, []*Device, error) {
	imported := 0
	var failed []*Device
	for _, device := range devices {
		if device.HashKey == "" || device.LogicalAddress == "" {
			failed = append(failed, device)
			continue
		}
		if err := r.UpsertDevice(ctx, device); err != nil {
			failed = append(failed, device)
			continue
		}
		imported++
	}
	return imported, failed, nil
}
