package zabbix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/condition"
)

// fakeBackend 模拟 Zabbix JSON-RPC 端点，按 method 路由到应答函数
type fakeBackend struct {
	t          *testing.T
	mu         sync.Mutex
	loginCount int32
	handlers   map[string]func(params json.RawMessage) (any, *APIError)
	requests   []rpcEnvelope
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      int             `json:"id"`
	Auth    *string         `json:"auth"`
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, handlers: map[string]func(json.RawMessage) (any, *APIError){}}
}

func (f *fakeBackend) handle(method string, fn func(json.RawMessage) (any, *APIError)) {
	f.handlers[method] = fn
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var envelope rpcEnvelope
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&envelope))
	assert.Equal(f.t, "2.0", envelope.JSONRPC)

	f.mu.Lock()
	f.requests = append(f.requests, envelope)
	f.mu.Unlock()

	if envelope.Method == "user.login" {
		atomic.AddInt32(&f.loginCount, 1)
		assert.Nil(f.t, envelope.Auth)
		writeRPC(w, "token-123", nil)
		return
	}

	require.NotNil(f.t, envelope.Auth, "method %s sent without auth", envelope.Method)
	assert.Equal(f.t, "token-123", *envelope.Auth)

	fn, ok := f.handlers[envelope.Method]
	require.True(f.t, ok, "unexpected method %s", envelope.Method)
	result, apiErr := fn(envelope.Params)
	writeRPC(w, result, apiErr)
}

func writeRPC(w http.ResponseWriter, result any, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"jsonrpc": "2.0", "id": 1}
	if apiErr != nil {
		body["error"] = apiErr
	} else {
		body["result"] = result
	}
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, backend *fakeBackend) (*Client, *httptest.Server) {
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "Admin", "zabbix", zap.NewNop()), server
}

func TestClient_LoginOnceUnderConcurrency(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handle("host.get", func(json.RawMessage) (any, *APIError) {
		return []Host{}, nil
	})
	client, _ := newTestClient(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.HostsByName(context.Background(), []string{"D1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.loginCount))
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	client := NewClient(server.URL, "Admin", "zabbix", zap.NewNop())

	_, err := client.HostsByName(context.Background(), []string{"D1"})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusBadGateway, transportErr.Status)
}

func TestClient_APIError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handle("host.create", func(json.RawMessage) (any, *APIError) {
		return nil, &APIError{Code: -32602, Message: "Invalid params.", Data: `Host "D1" already exists.`}
	})
	client, _ := newTestClient(t, backend)

	_, err := client.CreateHost(context.Background(), "D1", "8", "10105")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -32602, apiErr.Code)
	assert.Contains(t, apiErr.Reason(), "already exists")
}

func TestClient_AuthFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRPC(w, nil, &APIError{Code: -32602, Message: "Login name or password is incorrect."})
	}))
	defer server.Close()
	client := NewClient(server.URL, "Admin", "wrong", zap.NewNop())

	_, err := client.HostsByName(context.Background(), []string{"D1"})
	require.Error(t, err)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestClient_UserByAlias(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handle("user.get", func(params json.RawMessage) (any, *APIError) {
		var p struct {
			Filter struct {
				Alias []string `json:"alias"`
			} `json:"filter"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		if len(p.Filter.Alias) == 0 || p.Filter.Alias[0] != "alice" {
			return []any{}, nil
		}
		return []map[string]any{{
			"userid": "3",
			"alias":  "alice",
			"medias": []map[string]any{
				{"mediatypeid": "4", "sendto": "+1555", "severity": "63", "period": "1-7,00:00-24:00"},
				{"mediatypeid": "1", "sendto": "a@x.com", "severity": "63", "period": "1-7,00:00-24:00"},
			},
		}}, nil
	})
	client, _ := newTestClient(t, backend)

	user, err := client.UserByAlias(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "3", user.UserID)
	require.Len(t, user.Medias, 2)
	assert.Equal(t, MediaSMS, user.Medias[0].Type)
	assert.Equal(t, 63, user.Medias[0].Severity)
	assert.Equal(t, MediaEmail, user.Medias[1].Type)

	missing, err := client.UserByAlias(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_CreateActionWire(t *testing.T) {
	backend := newFakeBackend(t)
	var captured json.RawMessage
	backend.handle("action.create", func(params json.RawMessage) (any, *APIError) {
		captured = params
		return map[string]any{"actionids": []string{"13"}}, nil
	})
	client, _ := newTestClient(t, backend)

	actionID, err := client.CreateAction(context.Background(), CreateActionParams{
		Name:       "alice`s device occur tds exception action",
		Conditions: condition.Build([]string{"10112"}, "tds", nil),
		Operations: []Operation{{UserID: "3", Channel: NotifySMS}},
		Subject:    "subject",
		Message:    "message",
	})
	require.NoError(t, err)
	assert.Equal(t, "13", actionID)

	var p []struct {
		EventSource int `json:"eventsource"`
		Filter      struct {
			EvalType   string          `json:"evaltype"`
			Conditions []wireCondition `json:"conditions"`
		} `json:"filter"`
		Operations []wireOperation `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(captured, &p))
	require.Len(t, p, 1)
	assert.Equal(t, 0, p[0].EventSource)
	assert.Equal(t, "0", p[0].Filter.EvalType)
	// 领域条件编码为线上魔法值：host 条件 "1"/"0"，item 条件 "3"/"2"
	require.Len(t, p[0].Filter.Conditions, 2)
	assert.Equal(t, wireCondition{ConditionType: "1", Operator: "0", Value: "10112", FormulaID: "A"}, p[0].Filter.Conditions[0])
	assert.Equal(t, wireCondition{ConditionType: "3", Operator: "2", Value: "tds", FormulaID: "B"}, p[0].Filter.Conditions[1])
	// SMS 通知操作使用短信 mediatype
	require.Len(t, p[0].Operations, 1)
	assert.Equal(t, "4", p[0].Operations[0].OpMessage.MediaTypeID)
	assert.Equal(t, []wireUserRef{{UserID: "3"}}, p[0].Operations[0].OpMessageUsr)
}

func TestClient_ActionsByHostIDDecodesConditions(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handle("action.get", func(params json.RawMessage) (any, *APIError) {
		var p struct {
			HostIDs []string `json:"hostids"`
			Filter  struct {
				EventSource int `json:"eventsource"`
			} `json:"filter"`
		}
		require.NoError(t, json.Unmarshal(params, &p))
		assert.Equal(t, []string{"10112"}, p.HostIDs)
		assert.Equal(t, 0, p.Filter.EventSource)
		return []map[string]any{{
			"actionid": "13",
			"name":     "alice`s device occur tds exception action",
			"filter": map[string]any{
				"evaltype": "0",
				"conditions": []map[string]any{
					{"conditiontype": "1", "operator": "0", "value": "10112", "formulaid": "A"},
					{"conditiontype": "3", "operator": "2", "value": "tds", "formulaid": "B"},
				},
			},
		}}, nil
	})
	client, _ := newTestClient(t, backend)

	actions, err := client.ActionsByHostID(context.Background(), "10112")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "13", actions[0].ID)
	assert.Equal(t, []condition.Condition{
		condition.HostMembership("10112"),
		condition.ItemNameMatch("tds"),
	}, actions[0].Conditions)
}

func TestClient_Reauthenticate(t *testing.T) {
	backend := newFakeBackend(t)
	backend.handle("host.get", func(json.RawMessage) (any, *APIError) {
		return []Host{}, nil
	})
	client, _ := newTestClient(t, backend)

	_, err := client.HostsByName(context.Background(), []string{"D1"})
	require.NoError(t, err)
	require.NoError(t, client.Reauthenticate(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&backend.loginCount))
}
