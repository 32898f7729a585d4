package provision

import "errors"

// 开通/下线流程的错误分类。远端调用失败（*zabbix.TransportError /
// *zabbix.APIError）原样向上传递，这里只定义流程自身的前置条件错误。
var (
	// ErrInvalidParameter 调用方入参不合法，未发起任何远端调用
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrConflict 开通前置条件失败：host 已存在
	ErrConflict = errors.New("conflict")
	// ErrNotFound 下线前置条件失败：host 不存在
	ErrNotFound = errors.New("not found")
)

// Error 带分类的流程错误，Message 面向调用方展示
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }
