package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/zabbix"
)

// 设备上报事件映射出的 item key
const (
	ItemKeyTDS           = "device.tds"
	ItemKeyRunningStatus = "device.running_status"
	ItemKeyWaterPurified = "device.water_purified"
	ItemKeyColdWaterTemp = "device.cold_water_temp"
	ItemKeyHotWaterTemp  = "device.hot_water_temp"
)

// ErrInvalidPayload 上报报文缺字段或字段值非法
var ErrInvalidPayload = errors.New("invalid payload")

func itemKeyFilterLifePercent(n int) string {
	return fmt.Sprintf("device.filter%d_life_percent", n)
}

// Payload kaa 设备网关转发的上报报文
type Payload struct {
	Header struct {
		EndpointKeyHash struct {
			String string `json:"string"`
		} `json:"endpointKeyHash"`
	} `json:"header"`
	Event *Event `json:"event"`
}

// Event 净水设备的一次遥测事件
type Event struct {
	InletTDS      int `json:"inletTDS"`
	OutletTDS     int `json:"outletTDS"`
	HotWaterTemp  int `json:"hotWaterTemp"`
	ColdWaterTemp int `json:"coldWaterTemp"`
	WaterPurified int `json:"waterPurified"`
	WorkingStatus int `json:"workingStatus"`
	FailureStatus int `json:"failureStatus"`
	FilterStatus  struct {
		FilterCount int `json:"filterCount"`
		FilterList  []struct {
			Life int `json:"life"`
			Base int `json:"base"`
		} `json:"filterList"`
	} `json:"filterStatus"`
}

// ItemValues 把事件换算成 (host, key, value) 列表。
// 滤芯寿命按 life*100/base 取整，且只在 5 支滤芯齐全时上报。
func ItemValues(host string, event *Event) ([]zabbix.MetricValue, error) {
	value := func(key string, v int) zabbix.MetricValue {
		return zabbix.MetricValue{Host: host, Key: key, Value: strconv.Itoa(v)}
	}
	values := []zabbix.MetricValue{
		value(ItemKeyTDS, event.OutletTDS),
		value(ItemKeyHotWaterTemp, event.HotWaterTemp),
		value(ItemKeyColdWaterTemp, event.ColdWaterTemp),
		value(ItemKeyWaterPurified, event.WaterPurified),
		value(ItemKeyRunningStatus, event.FailureStatus),
	}

	filters := event.FilterStatus.FilterList
	percents := make([]int, 0, len(filters))
	for i, f := range filters {
		if f.Base <= 0 {
			return nil, fmt.Errorf("%w: filter %d has invalid base %d", ErrInvalidPayload, i+1, f.Base)
		}
		percents = append(percents, f.Life*100/f.Base)
	}
	if len(percents) == 5 {
		for i, p := range percents {
			values = append(values, value(itemKeyFilterLifePercent(i+1), p))
		}
	}
	return values, nil
}

// AddressResolver 把设备上报里的 endpoint hash 解析成逻辑地址
type AddressResolver interface {
	LogicalAddressByHashKey(ctx context.Context, hashKey string) (string, error)
}

// MetricSender 向 Zabbix trapper 投递 item 值
type MetricSender interface {
	Send(ctx context.Context, values []zabbix.MetricValue) error
}

// Pipeline 遥测入库管道：解析报文、换算逻辑地址、经 trapper 投递。
// HTTP 与 MQTT 两个入口共用同一条管道。
type Pipeline struct {
	resolver AddressResolver
	sender   MetricSender
	logger   *zap.Logger
}

func NewPipeline(resolver AddressResolver, sender MetricSender, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		sender:   sender,
		logger:   logger,
	}
}

// Ingest 处理一条原始上报报文。
// 报文不合法返回 ErrInvalidPayload；设备未登记返回 store 层的未找到错误。
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) error {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p.IngestPayload(ctx, &payload)
}

// IngestPayload 处理一条已解析的上报报文
func (p *Pipeline) IngestPayload(ctx context.Context, payload *Payload) error {
	hashKey := payload.Header.EndpointKeyHash.String
	if hashKey == "" || payload.Event == nil {
		return fmt.Errorf("%w: missing endpoint hash or event", ErrInvalidPayload)
	}

	logicalAddress, err := p.resolver.LogicalAddressByHashKey(ctx, hashKey)
	if err != nil {
		return fmt.Errorf("resolve logical address: %w", err)
	}

	values, err := ItemValues(logicalAddress, payload.Event)
	if err != nil {
		return err
	}
	if err := p.sender.Send(ctx, values); err != nil {
		return fmt.Errorf("send item values: %w", err)
	}

	p.logger.Info("device data forwarded",
		zap.String("logical_address", logicalAddress),
		zap.Int("values", len(values)),
	)
	return nil
}
