package zabbix

import "fmt"

// TransportError HTTP 层失败（非 200 响应或网络错误已由 resty 包装）
// 此时响应体不可信，不做进一步解析。
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("zabbix transport failure: code(%d), reason: %s", e.Status, e.Reason)
}

// APIError Zabbix 返回的结构化错误（响应体中的 error 对象）
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zabbix failure: code(%d), reason: %s %s", e.Code, e.Message, e.Data)
}

// Reason 后端给出的完整失败原因（message + data）
func (e *APIError) Reason() string {
	return e.Message + " " + e.Data
}
