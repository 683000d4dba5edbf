package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/ponplan/internal/topology"
	"github.com/HerbHall/ponplan/pkg/models"
	"github.com/HerbHall/ponplan/pkg/plugin"
	"github.com/HerbHall/ponplan/pkg/roles"
)

const maxBodyBytes = 1 << 20

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/plan", Handler: m.handlePlan},
		{Method: "GET", Path: "/rules", Handler: m.handleRules},
		{Method: "POST", Path: "/validate", Handler: m.handleValidate},
		{Method: "GET", Path: "/validate/{device_id}", Handler: m.handleValidateDevice},
		{Method: "POST", Path: "/ports", Handler: m.handlePorts},
		{Method: "GET", Path: "/ports", Handler: m.handleStoredPorts},
		{Method: "POST", Path: "/attachments", Handler: m.handleAttachments},
		{Method: "GET", Path: "/attachments", Handler: m.handleStoredAttachments},
	}
}

// PlanRequest asks for a topology for a subscriber count.
type PlanRequest struct {
	SubscriberCount int    `json:"subscriber_count" example:"24"`
	PonType         string `json:"pon_type" example:"gpon"`
}

// PlanResponse is a computed plan with its validation and explanation.
type PlanResponse struct {
	Topology        *topology.TopologyPlan    `json:"topology"`
	Validation      topology.ValidationResult `json:"validation"`
	Recommendations []string                  `json:"recommendations"`
	Diagram         topology.Diagram          `json:"diagram"`
	Rules           topology.RulesSnapshot    `json:"rules"`
}

// ValidateRequest describes an existing splitter chain.
type ValidateRequest struct {
	SubscriberCount int                  `json:"subscriber_count" example:"40"`
	PonType         string               `json:"pon_type" example:"gpon"`
	Stages          []topology.StageSpec `json:"stages"`
}

// ValidateResponse is the verdict on a splitter chain.
type ValidateResponse struct {
	Topology        *topology.TopologyPlan    `json:"topology"`
	Validation      topology.ValidationResult `json:"validation"`
	Recommendations []string                  `json:"recommendations"`
	StageHistory    *roles.StageHistory       `json:"stage_history,omitempty"`
}

// DevicesRequest carries device snapshots for port queries.
type DevicesRequest struct {
	Devices []topology.DeviceSnapshot `json:"devices"`
}

// handlePlan computes the topology for a subscriber count.
//
//	@Summary		Plan topology
//	@Description	Selects the splitter topology for a subscriber count and PON type, validates it and explains it.
//	@Tags			planner
//	@Accept			json
//	@Produce		json
//	@Param			request body PlanRequest true "Subscriber count and PON type"
//	@Success		200 {object} PlanResponse
//	@Failure		400 {object} models.APIProblem
//	@Router			/planner/plan [post]
func (m *Module) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !plannerDecode(w, r, &req) {
		return
	}
	pon, err := models.ParsePonType(req.PonType)
	if err != nil {
		plannerWriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := m.planner.Calculate(req.SubscriberCount, pon)
	if err != nil {
		m.writeEngineError(w, err)
		return
	}
	plansTotal.WithLabelValues(string(plan.PonType), string(plan.Shape)).Inc()

	res := m.planner.Validate(plan)
	observeValidation(res.IsValid)
	plannerWriteJSON(w, http.StatusOK, PlanResponse{
		Topology:        plan,
		Validation:      res,
		Recommendations: m.planner.RecommendFor(plan, res),
		Diagram:         topology.BuildDiagram(plan),
		Rules:           m.rules.Snapshot(),
	})
}

// handleRules returns the active rules table.
//
//	@Summary		Planning rules
//	@Description	Returns the loss, capacity and port tables the planner uses.
//	@Tags			planner
//	@Produce		json
//	@Success		200 {object} topology.RulesSnapshot
//	@Router			/planner/rules [get]
func (m *Module) handleRules(w http.ResponseWriter, _ *http.Request) {
	plannerWriteJSON(w, http.StatusOK, m.rules.Snapshot())
}

// handleValidate checks an explicit splitter chain.
//
//	@Summary		Validate chain
//	@Description	Rebuilds a plan from an explicit stage list and validates it against the loss budget and PON capacity.
//	@Tags			planner
//	@Accept			json
//	@Produce		json
//	@Param			request body ValidateRequest true "Splitter chain"
//	@Success		200 {object} ValidateResponse
//	@Failure		400 {object} models.APIProblem
//	@Router			/planner/validate [post]
func (m *Module) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !plannerDecode(w, r, &req) {
		return
	}
	pon, err := models.ParsePonType(req.PonType)
	if err != nil {
		plannerWriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := m.validateChain(req.SubscriberCount, pon, req.Stages)
	if err != nil {
		m.writeEngineError(w, err)
		return
	}
	plannerWriteJSON(w, http.StatusOK, resp)
}

// handleValidateDevice validates the stored chain feeding a device.
//
//	@Summary		Validate stored chain
//	@Description	Reconstructs the splitter chain from the OLT down to a stored device and validates it.
//	@Tags			planner
//	@Produce		json
//	@Param			device_id path string true "Device ID"
//	@Success		200 {object} ValidateResponse
//	@Failure		404 {object} models.APIProblem
//	@Failure		503 {object} models.APIProblem
//	@Router			/planner/validate/{device_id} [get]
func (m *Module) handleValidateDevice(w http.ResponseWriter, r *http.Request) {
	if m.inv == nil {
		plannerWriteError(w, http.StatusServiceUnavailable, "inventory not available")
		return
	}
	id := r.PathValue("device_id")
	h, err := m.inv.StageHistory(r.Context(), id)
	if err != nil {
		m.logger.Warn("failed to load stage history", zap.String("device_id", id), zap.Error(err))
		plannerWriteError(w, http.StatusInternalServerError, "failed to load stage history")
		return
	}
	if h == nil {
		plannerWriteError(w, http.StatusNotFound, "device not found")
		return
	}

	specs := make([]topology.StageSpec, 0, len(h.Stages))
	for _, s := range h.Stages {
		specs = append(specs, topology.StageSpec{DeviceType: string(s.DeviceType), SplitterType: s.SplitterType})
	}
	// A chain with no customers yet is still checked for loss.
	resp, err := m.validateChain(max(h.SubscriberCount, 1), h.PonType, specs)
	if err != nil {
		m.writeEngineError(w, err)
		return
	}
	resp.StageHistory = h
	plannerWriteJSON(w, http.StatusOK, resp)
}

// handlePorts summarizes port capacity over the posted devices.
//
//	@Summary		Port allocation
//	@Description	Resolves port totals for the posted OLT, MS and SUBMS snapshots and summarizes utilization.
//	@Tags			planner
//	@Accept			json
//	@Produce		json
//	@Param			request body DevicesRequest true "Device snapshots"
//	@Success		200 {object} topology.PortAllocation
//	@Failure		400 {object} models.APIProblem
//	@Router			/planner/ports [post]
func (m *Module) handlePorts(w http.ResponseWriter, r *http.Request) {
	var req DevicesRequest
	if !plannerDecode(w, r, &req) {
		return
	}
	m.writePorts(w, req.Devices)
}

// handleStoredPorts summarizes port capacity over the stored inventory.
//
//	@Summary		Stored port allocation
//	@Tags			planner
//	@Produce		json
//	@Success		200 {object} topology.PortAllocation
//	@Failure		503 {object} models.APIProblem
//	@Router			/planner/ports [get]
func (m *Module) handleStoredPorts(w http.ResponseWriter, r *http.Request) {
	devices, ok := m.storedSnapshots(r.Context(), w)
	if !ok {
		return
	}
	m.writePorts(w, devices)
}

// handleAttachments ranks attachment points among the posted devices.
//
//	@Summary		Attachment points
//	@Description	Ranks OLTs, MSs and SUBMSs by free ports and proposes where a new FDB or customer should attach.
//	@Tags			planner
//	@Accept			json
//	@Produce		json
//	@Param			request body DevicesRequest true "Device snapshots"
//	@Success		200 {object} topology.AttachmentRecommendation
//	@Failure		400 {object} models.APIProblem
//	@Router			/planner/attachments [post]
func (m *Module) handleAttachments(w http.ResponseWriter, r *http.Request) {
	var req DevicesRequest
	if !plannerDecode(w, r, &req) {
		return
	}
	m.writeAttachments(w, req.Devices)
}

// handleStoredAttachments ranks attachment points in the stored inventory.
//
//	@Summary		Stored attachment points
//	@Tags			planner
//	@Produce		json
//	@Success		200 {object} topology.AttachmentRecommendation
//	@Failure		503 {object} models.APIProblem
//	@Router			/planner/attachments [get]
func (m *Module) handleStoredAttachments(w http.ResponseWriter, r *http.Request) {
	devices, ok := m.storedSnapshots(r.Context(), w)
	if !ok {
		return
	}
	m.writeAttachments(w, devices)
}

func (m *Module) validateChain(subscribers int, pon models.PonType, specs []topology.StageSpec) (*ValidateResponse, error) {
	plan, err := m.planner.BuildPlan(subscribers, pon, specs)
	if err != nil {
		return nil, err
	}
	res := m.planner.Validate(plan)
	observeValidation(res.IsValid)
	return &ValidateResponse{
		Topology:        plan,
		Validation:      res,
		Recommendations: m.planner.RecommendFor(plan, res),
	}, nil
}

func (m *Module) writePorts(w http.ResponseWriter, devices []topology.DeviceSnapshot) {
	alloc, err := m.alloc.Summarize(devices)
	if err != nil {
		m.writeEngineError(w, err)
		return
	}
	plannerWriteJSON(w, http.StatusOK, alloc)
}

func (m *Module) writeAttachments(w http.ResponseWriter, devices []topology.DeviceSnapshot) {
	rec, err := m.alloc.RecommendAttachmentPoints(devices)
	if err != nil {
		m.writeEngineError(w, err)
		return
	}
	plannerWriteJSON(w, http.StatusOK, rec)
}

// storedSnapshots reads the port-bearing devices from the inventory. It
// writes the error response itself and reports false on failure.
func (m *Module) storedSnapshots(ctx context.Context, w http.ResponseWriter) ([]topology.DeviceSnapshot, bool) {
	if m.inv == nil {
		plannerWriteError(w, http.StatusServiceUnavailable, "inventory not available")
		return nil, false
	}
	devices, err := m.inv.Devices(ctx, models.DeviceTypeOLT, models.DeviceTypeMS, models.DeviceTypeSUBMS)
	if err != nil {
		m.logger.Warn("failed to read inventory", zap.Error(err))
		plannerWriteError(w, http.StatusInternalServerError, "failed to read inventory")
		return nil, false
	}
	out := make([]topology.DeviceSnapshot, 0, len(devices))
	for _, d := range devices {
		out = append(out, snapshotOf(d))
	}
	return out, true
}

func (m *Module) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, topology.ErrInvalidInput) {
		plannerWriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.logger.Error("planner failure", zap.Error(err))
	plannerWriteError(w, http.StatusInternalServerError, "planner failure")
}

func plannerDecode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		plannerWriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func plannerWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func plannerWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.NewProblem(status, detail, ""))
}
