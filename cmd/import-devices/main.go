package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/config"
	"github.com/RayGuolq/zabbix/internal/logger"
	"github.com/RayGuolq/zabbix/internal/store"
)

// 导入表固定三列：Hash Key / Logical Address / Status（可空，默认在线）
var importHeader = []string{"Hash Key", "Logical Address", "Status"}

func main() {
	var (
		file  = flag.String("file", "", "xlsx file to import")
		sheet = flag.String("sheet", "", "sheet name (default: first sheet)")
	)
	flag.Parse()
	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -file devices.xlsx [-sheet Devices]\n", os.Args[0])
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, "console", "import-devices")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	devices, err := readDevices(*file, *sheet)
	if err != nil {
		log.Fatal("read xlsx", zap.String("file", *file), zap.Error(err))
	}
	if len(devices) == 0 {
		log.Warn("no device rows found", zap.String("file", *file))
		return
	}

	db, err := store.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("connect to postgres", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo := store.NewPostgresDeviceRepository(db)
	imported, failed, err := repo.ImportDevices(ctx, devices)
	if err != nil {
		log.Fatal("import devices", zap.Error(err))
	}
	for _, d := range failed {
		log.Warn("device not imported",
			zap.String("hash_key", d.HashKey),
			zap.String("logical_address", d.LogicalAddress),
		)
	}
	log.Info("import finished",
		zap.Int("imported", imported),
		zap.Int("failed", len(failed)),
	)
	fmt.Printf("imported %d, failed %d\n", imported, len(failed))
}

// readDevices 读取导入表。首行必须是表头，空行跳过。
func readDevices(path, sheet string) ([]*store.Device, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	var devices []*store.Device
	for _, row := range rows[1:] {
		device := parseRow(row)
		if device == nil {
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func checkHeader(row []string) error {
	if len(row) < len(importHeader) {
		return fmt.Errorf("header row has %d columns, want %d", len(row), len(importHeader))
	}
	for i, want := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return fmt.Errorf("header column %d is %q, want %q", i+1, row[i], want)
		}
	}
	return nil
}

func parseRow(row []string) *store.Device {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	hashKey, address := cell(0), cell(1)
	if hashKey == "" && address == "" {
		return nil
	}
	status := store.DeviceStatusOnline
	switch strings.ToLower(cell(2)) {
	case "", "online":
	case "offline":
		status = store.DeviceStatusOffline
	case "imported":
		status = store.DeviceStatusImported
	}
	return &store.Device{
		HashKey:        hashKey,
		LogicalAddress: address,
		Status:         status,
	}
}
