package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/ponplan/pkg/models"
	"github.com/HerbHall/ponplan/pkg/plugin"
)

// maxBodyBytes caps request bodies for device creation.
const maxBodyBytes = 64 << 10

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/devices", Handler: m.handleListDevices},
		{Method: "POST", Path: "/devices", Handler: m.handleCreateDevice},
		{Method: "GET", Path: "/devices/{id}", Handler: m.handleGetDevice},
		{Method: "DELETE", Path: "/devices/{id}", Handler: m.handleDeleteDevice},
		{Method: "GET", Path: "/devices/{id}/children", Handler: m.handleListChildren},
		{Method: "GET", Path: "/devices/{id}/stages", Handler: m.handleStageHistory},
	}
}

// handleListDevices returns stored devices, optionally filtered by type.
//
//	@Summary		List devices
//	@Description	Returns stored PON devices. The type filter may be repeated or comma-separated.
//	@Tags			inventory
//	@Produce		json
//	@Param			type query string false "Device type filter (olt, ms, subms, fdb, x2, customer)"
//	@Success		200 {array} models.PonDevice
//	@Failure		400 {object} models.APIProblem
//	@Failure		503 {object} models.APIProblem
//	@Router			/inventory/devices [get]
func (m *Module) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	types, err := parseTypeFilter(r.URL.Query()["type"])
	if err != nil {
		inventoryWriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	devices, err := m.store.ListDevices(r.Context(), types...)
	if err != nil {
		m.logger.Warn("failed to list devices", zap.Error(err))
		inventoryWriteError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []models.PonDevice{}
	}
	inventoryWriteJSON(w, http.StatusOK, devices)
}

// handleCreateDevice stores a new device under an existing parent.
//
//	@Summary		Create device
//	@Description	Creates a PON device. OLTs take no parent; every other type must attach to an allowed parent type.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			device body CreateDeviceRequest true "Device"
//	@Success		201 {object} models.PonDevice
//	@Failure		400 {object} models.APIProblem
//	@Failure		503 {object} models.APIProblem
//	@Router			/inventory/devices [post]
func (m *Module) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	var req CreateDeviceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		inventoryWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := m.CreateDevice(r.Context(), req)
	if err != nil {
		m.writeDeviceError(w, err, "failed to create device")
		return
	}
	inventoryWriteJSON(w, http.StatusCreated, d)
}

// handleGetDevice returns one device.
//
//	@Summary		Get device
//	@Tags			inventory
//	@Produce		json
//	@Param			id path string true "Device ID"
//	@Success		200 {object} models.PonDevice
//	@Failure		404 {object} models.APIProblem
//	@Router			/inventory/devices/{id} [get]
func (m *Module) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	id := r.PathValue("id")
	d, err := m.store.GetDevice(r.Context(), id)
	if err != nil {
		m.logger.Warn("failed to get device", zap.String("id", id), zap.Error(err))
		inventoryWriteError(w, http.StatusInternalServerError, "failed to get device")
		return
	}
	if d == nil {
		inventoryWriteError(w, http.StatusNotFound, "device not found")
		return
	}
	inventoryWriteJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device with nothing attached to it.
//
//	@Summary		Delete device
//	@Tags			inventory
//	@Param			id path string true "Device ID"
//	@Success		204
//	@Failure		404 {object} models.APIProblem
//	@Failure		409 {object} models.APIProblem
//	@Router			/inventory/devices/{id} [delete]
func (m *Module) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	if err := m.DeleteDevice(r.Context(), r.PathValue("id")); err != nil {
		m.writeDeviceError(w, err, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListChildren returns the devices attached directly to a device.
//
//	@Summary		List children
//	@Tags			inventory
//	@Produce		json
//	@Param			id path string true "Device ID"
//	@Success		200 {array} models.PonDevice
//	@Failure		404 {object} models.APIProblem
//	@Router			/inventory/devices/{id}/children [get]
func (m *Module) handleListChildren(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	children, err := m.Children(r.Context(), r.PathValue("id"))
	if err != nil {
		m.writeDeviceError(w, err, "failed to list children")
		return
	}
	if children == nil {
		children = []models.PonDevice{}
	}
	inventoryWriteJSON(w, http.StatusOK, children)
}

// handleStageHistory returns the splitter chain feeding a device.
//
//	@Summary		Stage history
//	@Description	Walks from the device up to its OLT and returns the splitter stages in signal order.
//	@Tags			inventory
//	@Produce		json
//	@Param			id path string true "Device ID"
//	@Success		200 {object} roles.StageHistory
//	@Failure		404 {object} models.APIProblem
//	@Router			/inventory/devices/{id}/stages [get]
func (m *Module) handleStageHistory(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		inventoryWriteError(w, http.StatusServiceUnavailable, "inventory store not available")
		return
	}
	id := r.PathValue("id")
	h, err := m.StageHistory(r.Context(), id)
	if err != nil {
		m.logger.Warn("failed to build stage history", zap.String("id", id), zap.Error(err))
		inventoryWriteError(w, http.StatusInternalServerError, "failed to build stage history")
		return
	}
	if h == nil {
		inventoryWriteError(w, http.StatusNotFound, "device not found")
		return
	}
	inventoryWriteJSON(w, http.StatusOK, h)
}

// writeDeviceError maps device operation errors to problem responses.
func (m *Module) writeDeviceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		inventoryWriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidDevice), errors.Is(err, ErrInvalidParent):
		inventoryWriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrHasChildren):
		inventoryWriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoStore):
		inventoryWriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		m.logger.Warn(fallback, zap.Error(err))
		inventoryWriteError(w, http.StatusInternalServerError, fallback)
	}
}

func parseTypeFilter(values []string) ([]models.DeviceType, error) {
	var types []models.DeviceType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			dt, err := models.ParseDeviceType(part)
			if err != nil {
				return nil, err
			}
			types = append(types, dt)
		}
	}
	return types, nil
}

func inventoryWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func inventoryWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.NewProblem(status, detail, ""))
}
