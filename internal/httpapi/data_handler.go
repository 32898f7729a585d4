package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/store"
	"github.com/RayGuolq/zabbix/internal/telemetry"
)

// DeviceDataHandler 遥测上报 Handler，HTTP 入口接入共用的遥测管道
type DeviceDataHandler struct {
	pipeline *telemetry.Pipeline
	logger   *zap.Logger
}

func NewDeviceDataHandler(pipeline *telemetry.Pipeline, logger *zap.Logger) *DeviceDataHandler {
	return &DeviceDataHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// PostData 接收设备遥测，换算 item 值后经 trapper 投递。
// host 名即设备逻辑地址，endpoint hash 只在入口处换算一次。
func (h *DeviceDataHandler) PostData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload telemetry.Payload
	if err := readBodyJSON(r, &payload); err != nil {
		h.logger.Info("invalid device data payload", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(StatusInvalidParameter, "Invalid request body"))
		return
	}

	if err := h.pipeline.IngestPayload(ctx, &payload); err != nil {
		switch {
		case errors.Is(err, telemetry.ErrInvalidPayload):
			h.logger.Info("invalid device data payload", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(StatusInvalidParameter, "Input parameters format is wrong"))
		case errors.Is(err, store.ErrDeviceNotFound):
			h.logger.Info("unknown device", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(StatusFailure, "device not found"))
		default:
			h.logger.Error("ingest device data", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(StatusFailure, ""))
		}
		return
	}
	writeJSON(w, http.StatusOK, Ok(nil))
}
