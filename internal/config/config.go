package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config zabbix-server（设备接入 + Zabbix 同步）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Zabbix   ZabbixConfig
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	MQTT MQTTConfig
	SMS  SMSConfig
	Log  struct {
		Level  string
		Format string
	}
}

// ZabbixConfig Zabbix 后端配置
type ZabbixConfig struct {
	URL           string // JSON-RPC API 地址（.../api_jsonrpc.php）
	User          string
	Password      string
	TrapperAddr   string // zabbix trapper（sender 协议）地址，如 "192.168.1.1:10051"
	HostGroupName string // 设备 host 所属 hostgroup
	TemplateName  string // 设备 host 绑定的 template
	UserGroupName string // 设备 owner 所属 usergroup
}

// DatabaseConfig 设备库数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MQTTConfig MQTT 配置（设备遥测接入，默认禁用）
type MQTTConfig struct {
	Enabled  bool
	Broker   string // 如 "tcp://localhost:1883"
	ClientID string
	Username string
	Password string
	Topic    string // 订阅的遥测主题
	QoS      byte
}

// SMSConfig 短信网关配置（zabbix alertscript 使用）
type SMSConfig struct {
	ServiceURL string
	ClientID   string
	ClientName string
	Password   string // 网关侧已做 MD5 的口令
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":11011")

	cfg.Zabbix.URL = getEnv("ZABBIX_URL", "http://192.168.1.1:8000/zabbix/api_jsonrpc.php")
	cfg.Zabbix.User = getEnv("ZABBIX_USER", "Admin")
	cfg.Zabbix.Password = getEnv("ZABBIX_PASSWORD", "zabbix")
	cfg.Zabbix.TrapperAddr = getEnv("ZABBIX_TRAPPER_ADDR", "192.168.1.1:10051")
	cfg.Zabbix.HostGroupName = getEnv("ZABBIX_HOSTGROUP_NAME", "Tahoe devices")
	cfg.Zabbix.TemplateName = getEnv("ZABBIX_TEMPLATE_NAME", "Tahoe device template")
	cfg.Zabbix.UserGroupName = getEnv("ZABBIX_USERGROUP_NAME", "Tahoe users")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "devices")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	// MQTT 遥测接入（默认禁用，HTTP 接入始终可用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "zabbix-server-ingest")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "device/telemetry")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.SMS.ServiceURL = getEnv("SMS_SERVICE_URL", "http://sms.bdt360.com:8180/service.asmx/SendMessageStr")
	cfg.SMS.ClientID = getEnv("SMS_CLIENT_ID", "300")
	cfg.SMS.ClientName = getEnv("SMS_CLIENT_NAME", "iwater")
	cfg.SMS.Password = getEnv("SMS_PASSWORD", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
