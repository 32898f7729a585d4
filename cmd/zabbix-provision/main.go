package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/config"
	"github.com/RayGuolq/zabbix/internal/logger"
	"github.com/RayGuolq/zabbix/internal/provision"
	"github.com/RayGuolq/zabbix/internal/store"
	"github.com/RayGuolq/zabbix/internal/zabbix"
)

// 离线开通/下线工具，跳过 HTTP 面直接驱动调和流程
func main() {
	var (
		action  = flag.String("action", "", "setup or remove")
		address = flag.String("address", "", "device logical address")
		user    = flag.String("username", "", "owner username (setup)")
		smss    = flag.String("smss", "", "comma separated mobile numbers (setup)")
		emails  = flag.String("emails", "", "comma separated email addresses (setup)")
	)
	flag.Parse()

	if *action != "setup" && *action != "remove" {
		fmt.Fprintf(os.Stderr, "Usage: %s -action setup|remove -address <addr> [-username <name>] [-smss a,b] [-emails a,b]\n", os.Args[0])
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, "console", "zabbix-provision")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gateway := zabbix.NewClient(cfg.Zabbix.URL, cfg.Zabbix.User, cfg.Zabbix.Password, log)
	provisioner, err := provision.NewProvisioner(
		ctx, gateway, store.NoopLocker{},
		cfg.Zabbix.HostGroupName, cfg.Zabbix.TemplateName, cfg.Zabbix.UserGroupName,
		zabbix.NotifySMS, log,
	)
	if err != nil {
		log.Fatal("init provisioner", zap.Error(err))
	}

	switch *action {
	case "setup":
		err = provisioner.DeviceFirstSetup(ctx, *address, *user, splitList(*smss), splitList(*emails))
	case "remove":
		err = provisioner.RemoveDeviceHost(ctx, *address)
	}
	if err != nil {
		log.Error("provision failed", zap.String("action", *action), zap.Error(err))
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println("success")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
