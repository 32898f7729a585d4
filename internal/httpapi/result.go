package httpapi

// Result 对外统一响应体，HTTP 层始终返回 200，业务结果放在 status 里
type Result struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const (
	StatusSuccess          = 0
	StatusFailure          = 1
	StatusInvalidParameter = 2
	StatusExists           = 17
)

const (
	messageSuccess = "success"
	messageFailure = "failure"
)

func Ok(data any) Result {
	return Result{Status: StatusSuccess, Message: messageSuccess, Data: data}
}

func Fail(status int, message string) Result {
	if message == "" {
		message = messageFailure
	}
	return Result{Status: status, Message: message}
}
