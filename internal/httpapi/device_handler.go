package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/provision"
)

// DeviceProvisioner 设备开通/下线编排（provision.Provisioner 实现）
type DeviceProvisioner interface {
	DeviceFirstSetup(ctx context.Context, logicalAddress, username string, smss, emails []string) error
	RemoveDeviceHost(ctx context.Context, logicalAddress string) error
}

// DeviceHandler 设备开通/下线 Handler
type DeviceHandler struct {
	provisioner DeviceProvisioner
	logger      *zap.Logger
}

func NewDeviceHandler(provisioner DeviceProvisioner, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		provisioner: provisioner,
		logger:      logger,
	}
}

// SetupDeviceRequest 开通请求体
type SetupDeviceRequest struct {
	LogicalAddress string   `json:"logical_address"`
	Username       string   `json:"username"`
	Smss           []string `json:"smss"`
	Emails         []string `json:"emails"`
}

// SetupDevice 设备首次开通
func (h *DeviceHandler) SetupDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SetupDeviceRequest
	if err := readBodyJSON(r, &req); err != nil {
		h.logger.Info("invalid setup request", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(StatusInvalidParameter, "Invalid request body"))
		return
	}

	h.logger.Info("setup device",
		zap.String("logical_address", req.LogicalAddress),
		zap.String("username", req.Username),
	)
	if err := h.provisioner.DeviceFirstSetup(ctx, req.LogicalAddress, req.Username, req.Smss, req.Emails); err != nil {
		h.logger.Error("setup device failed",
			zap.String("logical_address", req.LogicalAddress),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, failFromProvisionError(err))
		return
	}
	writeJSON(w, http.StatusOK, Ok(nil))
}

// RemoveDevice 设备下线
func (h *DeviceHandler) RemoveDevice(w http.ResponseWriter, r *http.Request, logicalAddress string) {
	ctx := r.Context()

	h.logger.Info("remove device", zap.String("logical_address", logicalAddress))
	if err := h.provisioner.RemoveDeviceHost(ctx, logicalAddress); err != nil {
		h.logger.Error("remove device failed",
			zap.String("logical_address", logicalAddress),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, failFromProvisionError(err))
		return
	}
	writeJSON(w, http.StatusOK, Ok(nil))
}

func failFromProvisionError(err error) Result {
	switch {
	case errors.Is(err, provision.ErrConflict):
		return Fail(StatusExists, err.Error())
	case errors.Is(err, provision.ErrInvalidParameter):
		return Fail(StatusInvalidParameter, err.Error())
	case errors.Is(err, provision.ErrNotFound):
		return Fail(StatusFailure, err.Error())
	default:
		return Fail(StatusFailure, err.Error())
	}
}
