package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/config"
	"github.com/RayGuolq/zabbix/internal/logger"
	"github.com/RayGuolq/zabbix/internal/notify"
)

// Zabbix alertscript 入口，固定三个参数：收件人、主题、正文。
// 短信只发正文，主题由 Zabbix 生成、这里不用。
func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <mobile> <subject> <message>\n", os.Args[0])
		os.Exit(2)
	}
	mobile := os.Args[1]
	message := os.Args[3]

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, "console", "sms-notify")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	client := notify.NewSMSClient(notify.SMSConfig{
		ServiceURL: cfg.SMS.ServiceURL,
		ClientID:   cfg.SMS.ClientID,
		ClientName: cfg.SMS.ClientName,
		Password:   cfg.SMS.Password,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Send(ctx, mobile, message); err != nil {
		log.Error("send sms failed", zap.String("mobile", mobile), zap.Error(err))
		os.Exit(1)
	}
}
