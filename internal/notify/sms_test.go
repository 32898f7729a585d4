package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSMSClient(serviceURL string) *SMSClient {
	return NewSMSClient(SMSConfig{
		ServiceURL: serviceURL,
		ClientID:   "300",
		ClientName: "iwater",
		Password:   "9E24A3C12963A4EA0311C69B3E7D6B03",
	}, zap.NewNop())
}

func TestSMSClient_Send(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte("State:1,Id:11811665,FailPhone:"))
	}))
	defer server.Close()

	client := newTestSMSClient(server.URL)
	err := client.Send(context.Background(), "18616764280", "设备告警")
	require.NoError(t, err)

	assert.Equal(t, "300", form["Id"][0])
	assert.Equal(t, "iwater", form["Name"][0])
	assert.Equal(t, "18616764280", form["Phone"][0])
	assert.Equal(t, "设备告警", form["Message"][0])
	assert.Equal(t, "0", form["Timestamp"][0])
}

func TestSMSClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("State:0,Id:0,FailPhone:18616764280"))
	}))
	defer server.Close()

	client := newTestSMSClient(server.URL)
	err := client.Send(context.Background(), "18616764280", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestResponseOK(t *testing.T) {
	assert.True(t, responseOK("State:1,Id:11811665,FailPhone:"))
	assert.True(t, responseOK("Id:1,State:1"))
	assert.False(t, responseOK("State:0,Id:1,FailPhone:x"))
	assert.False(t, responseOK(""))
	assert.False(t, responseOK("garbage"))
	assert.False(t, responseOK("State:abc"))
}
