package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/config"
	"github.com/RayGuolq/zabbix/internal/httpapi"
	"github.com/RayGuolq/zabbix/internal/logger"
	"github.com/RayGuolq/zabbix/internal/mqttingest"
	"github.com/RayGuolq/zabbix/internal/provision"
	"github.com/RayGuolq/zabbix/internal/store"
	"github.com/RayGuolq/zabbix/internal/telemetry"
	"github.com/RayGuolq/zabbix/internal/zabbix"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "zabbix-server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	devices := store.NewCachedDeviceRepository(
		store.NewPostgresDeviceRepository(db),
		store.NewRedisKV(redisClient),
	)

	gateway := zabbix.NewClient(cfg.Zabbix.URL, cfg.Zabbix.User, cfg.Zabbix.Password, log)
	provisioner, err := provision.NewProvisioner(
		ctx, gateway, store.NewRedisLocker(redisClient),
		cfg.Zabbix.HostGroupName, cfg.Zabbix.TemplateName, cfg.Zabbix.UserGroupName,
		zabbix.NotifySMS, log,
	)
	if err != nil {
		log.Fatal("init provisioner", zap.Error(err))
	}

	sender := zabbix.NewSender(cfg.Zabbix.TrapperAddr, log)
	pipeline := telemetry.NewPipeline(devices, sender, log)

	router := httpapi.NewRouter(log)
	router.RegisterDataRoutes(httpapi.NewDeviceDataHandler(pipeline, log))
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(provisioner, log))

	var subscriber *mqttingest.Subscriber
	if cfg.MQTT.Enabled {
		subscriber, err = mqttingest.NewSubscriber(&cfg.MQTT, pipeline, log)
		if err != nil {
			log.Fatal("connect to MQTT broker", zap.Error(err))
		}
		if err := subscriber.Start(ctx); err != nil {
			log.Fatal("start MQTT subscriber", zap.Error(err))
		}
	}

	srv := httpapi.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if subscriber != nil {
		subscriber.Stop()
	}
}
