package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterDataRoutes 注册遥测上报路由
func (r *Router) RegisterDataRoutes(h *DeviceDataHandler) {
	r.Handle("/zabbix/api/v1/data", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostData(w, req)
	})
}

// RegisterDeviceRoutes 注册设备开通/下线路由
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler) {
	r.Handle("/zabbix/api/v1/devices", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SetupDevice(w, req)
	})

	// devices/{logical_address}
	r.Handle("/zabbix/api/v1/devices/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		addr := strings.TrimPrefix(req.URL.Path, "/zabbix/api/v1/devices/")
		if addr == "" || strings.Contains(addr, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.RemoveDevice(w, req, addr)
	})
}
