package zabbix

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// Sender Zabbix trapper（sender 协议）客户端，用于遥测数据上报。
// 与 JSON-RPC API 是两条独立通道：采集路径直连 trapper 端口。
type Sender struct {
	addr    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSender 创建 trapper 客户端，addr 形如 "192.168.1.1:10051"
func NewSender(addr string, logger *zap.Logger) *Sender {
	return &Sender{
		addr:    addr,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// MetricValue 一条 (host, item key, value) 上报值
type MetricValue struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type senderRequest struct {
	Request string        `json:"request"`
	Data    []MetricValue `json:"data"`
}

type senderResponse struct {
	Response string `json:"response"`
	Info     string `json:"info"`
}

// 协议帧：'ZBXD' + 0x01 + 8 字节小端长度 + JSON 正文
var senderHeader = []byte{'Z', 'B', 'X', 'D', 0x01}

// Send 批量上报。返回错误仅供记录：采集路径是 fire-and-forget，
// 单次失败不影响后续上报。
func (s *Sender) Send(ctx context.Context, values []MetricValue) error {
	if len(values) == 0 {
		return nil
	}

	body, err := json.Marshal(senderRequest{Request: "sender data", Data: values})
	if err != nil {
		return fmt.Errorf("marshal sender request: %w", err)
	}

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial zabbix trapper %s: %w", s.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	frame := make([]byte, 0, len(senderHeader)+8+len(body))
	frame = append(frame, senderHeader...)
	frame = binary.LittleEndian.AppendUint64(frame, uint64(len(body)))
	frame = append(frame, body...)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write sender frame: %w", err)
	}

	response, err := s.readResponse(conn)
	if err != nil {
		return err
	}
	if response.Response != "success" {
		return fmt.Errorf("zabbix trapper rejected data: %s", response.Info)
	}

	s.logger.Debug("sent metric values to zabbix",
		zap.Int("count", len(values)),
		zap.String("info", response.Info),
	)
	return nil
}

func (s *Sender) readResponse(conn net.Conn) (*senderResponse, error) {
	header := make([]byte, len(senderHeader)+8)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("read sender response header: %w", err)
	}
	if string(header[:4]) != "ZBXD" {
		return nil, fmt.Errorf("unexpected trapper response header % x", header[:4])
	}
	length := binary.LittleEndian.Uint64(header[len(senderHeader):])
	if length > 1<<20 {
		return nil, fmt.Errorf("trapper response too large: %d bytes", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, fmt.Errorf("read sender response body: %w", err)
	}
	var response senderResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unmarshal sender response: %w", err)
	}
	return &response, nil
}
