package zabbix

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startFakeTrapper 启动单连接的假 trapper，返回地址和收到的请求
func startFakeTrapper(t *testing.T, respond string) (string, chan senderRequest) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	received := make(chan senderRequest, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		header := make([]byte, 13)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.LittleEndian.Uint64(header[5:])
		body := make([]byte, length)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		var request senderRequest
		_ = json.Unmarshal(body, &request)
		received <- request

		payload := []byte(respond)
		frame := append([]byte{'Z', 'B', 'X', 'D', 0x01}, make([]byte, 8)...)
		binary.LittleEndian.PutUint64(frame[5:], uint64(len(payload)))
		frame = append(frame, payload...)
		_, _ = conn.Write(frame)
	}()
	return listener.Addr().String(), received
}

func TestSender_Send(t *testing.T) {
	addr, received := startFakeTrapper(t, `{"response":"success","info":"processed: 2; failed: 0; total: 2"}`)
	sender := NewSender(addr, zap.NewNop())

	err := sender.Send(context.Background(), []MetricValue{
		{Host: "D1", Key: "device.tds", Value: "8"},
		{Host: "D1", Key: "device.hot_water_temp", Value: "98"},
	})
	require.NoError(t, err)

	request := <-received
	assert.Equal(t, "sender data", request.Request)
	require.Len(t, request.Data, 2)
	assert.Equal(t, MetricValue{Host: "D1", Key: "device.tds", Value: "8"}, request.Data[0])
}

func TestSender_SendRejected(t *testing.T) {
	addr, _ := startFakeTrapper(t, `{"response":"failed","info":"invalid"}`)
	sender := NewSender(addr, zap.NewNop())

	err := sender.Send(context.Background(), []MetricValue{{Host: "D1", Key: "k", Value: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestSender_EmptyBatchIsNoop(t *testing.T) {
	// 无可连接地址也不报错：空批次不应触网
	sender := NewSender("127.0.0.1:1", zap.NewNop())
	assert.NoError(t, sender.Send(context.Background(), nil))
}
