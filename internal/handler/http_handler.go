package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/apperr"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/logger"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/repository"
	"github.com/kubiknyc/SuperSiteHero-sub015/internal/service"
)

// HTTPHandler exposes the workflow command surface over JSON/HTTP.
type HTTPHandler struct {
	service *service.WorkflowService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(service *service.WorkflowService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		log:     log,
	}
}

// ── Commands ──────────────────────────────────────────────────────────────────

type createItemRequest struct {
	ProjectID          string   `json:"project_id"`
	EntityType         string   `json:"entity_type"`
	Title              string   `json:"title"`
	Description        *string  `json:"description"`
	SpecSection        *string  `json:"spec_section"`
	AssignedTo         *string  `json:"assigned_to"`
	CostImpact         *int64   `json:"cost_impact"`
	ScheduleImpactDays *int     `json:"schedule_impact_days"`
	LinkedItemIDs      []string `json:"linked_item_ids"`
	CreatedBy          string   `json:"created_by"`
}

// CreateItem handles create item HTTP requests.
func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.service.Create(r.Context(), &service.CreateItemRequest{
		ProjectID:          req.ProjectID,
		EntityType:         repository.EntityType(req.EntityType),
		Title:              req.Title,
		Description:        req.Description,
		SpecSection:        req.SpecSection,
		AssignedTo:         req.AssignedTo,
		CostImpact:         req.CostImpact,
		ScheduleImpactDays: req.ScheduleImpactDays,
		LinkedItemIDs:      req.LinkedItemIDs,
		CreatedBy:          req.CreatedBy,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, item)
}

type transitionRequest struct {
	ID              string  `json:"id"`
	Action          string  `json:"action"`
	ActorID         string  `json:"actor_id"`
	ActorRole       string  `json:"actor_role"`
	ExpectedVersion int64   `json:"expected_version"`
	AssignedTo      *string `json:"assigned_to"`
	ApprovalCode    *string `json:"approval_code"`
	ChangeDesc      *string `json:"change_description"`
	CostImpact      *int64  `json:"cost_impact"`
	ScheduleDays    *int    `json:"schedule_impact_days"`
	ApprovedAmount  *int64  `json:"approved_amount"`
	ApprovedDays    *int    `json:"approved_days"`
	OriginalAmount  *int64  `json:"original_contract_amount"`
	Notes           *string `json:"notes"`
}

type transitionResponse struct {
	Item                   *repository.WorkflowItem `json:"item"`
	Escalated              bool                     `json:"escalated"`
	EscalatedToRole        string                   `json:"escalated_to_role,omitempty"`
	RequiresSecondApproval bool                     `json:"requires_second_approval"`
}

// Transition handles all transition commands (submit, respond, review,
// create_revision, void, close, approve, reject) through one endpoint.
func (h *HTTPHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ApplyTransition(r.Context(), &service.TransitionRequest{
		ItemID:          req.ID,
		Action:          service.Action(req.Action),
		ActorID:         req.ActorID,
		ActorRole:       req.ActorRole,
		ExpectedVersion: req.ExpectedVersion,
		Payload: service.TransitionPayload{
			AssignedTo:             req.AssignedTo,
			ApprovalCode:           req.ApprovalCode,
			ChangeDescription:      req.ChangeDesc,
			CostImpact:             req.CostImpact,
			ScheduleImpactDays:     req.ScheduleDays,
			ApprovedAmount:         req.ApprovedAmount,
			ApprovedDays:           req.ApprovedDays,
			OriginalContractAmount: req.OriginalAmount,
			Notes:                  req.Notes,
		},
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, &transitionResponse{
		Item:                   result.Item,
		Escalated:              result.Escalated,
		EscalatedToRole:        result.EscalatedToRole,
		RequiresSecondApproval: result.RequiresSecondApproval,
	})
}

// UpdateBallInCourt handles manual responsibility overrides.
func (h *HTTPHandler) UpdateBallInCourt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID              string  `json:"id"`
		UserID          *string `json:"user_id"`
		Role            string  `json:"role"`
		ActorID         string  `json:"actor_id"`
		ExpectedVersion int64   `json:"expected_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.service.UpdateBallInCourt(r.Context(), req.ID, req.UserID, req.Role, req.ActorID, req.ExpectedVersion)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// RequestEscalation handles manual escalation requests.
func (h *HTTPHandler) RequestEscalation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID              string `json:"id"`
		ActorID         string `json:"actor_id"`
		ActorRole       string `json:"actor_role"`
		ExpectedVersion int64  `json:"expected_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.RequestEscalation(r.Context(), req.ID, req.ActorID, req.ActorRole, req.ExpectedVersion)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, &transitionResponse{
		Item:            result.Item,
		Escalated:       result.Escalated,
		EscalatedToRole: result.EscalatedToRole,
	})
}

// LinkItems handles weak-reference link requests.
func (h *HTTPHandler) LinkItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID              string `json:"id"`
		LinkedItemID    string `json:"linked_item_id"`
		ActorID         string `json:"actor_id"`
		ExpectedVersion int64  `json:"expected_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.service.LinkItems(r.Context(), req.ID, req.LinkedItemID, req.ActorID, req.ExpectedVersion)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// VoidRevision voids an item's current revision.
func (h *HTTPHandler) VoidRevision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID              string `json:"id"`
		ActorID         string `json:"actor_id"`
		ExpectedVersion int64  `json:"expected_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.service.VoidRevision(r.Context(), req.ID, req.ActorID, req.ExpectedVersion)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// ── Queries ───────────────────────────────────────────────────────────────────

// GetItem handles item lookup requests.
func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// ListItems handles filtered item listing.
func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "Project ID is required", http.StatusBadRequest)
		return
	}

	var entityType *repository.EntityType
	if et := r.URL.Query().Get("entity_type"); et != "" {
		t := repository.EntityType(et)
		if !t.Valid() {
			http.Error(w, "Invalid entity type", http.StatusBadRequest)
			return
		}
		entityType = &t
	}

	var status *string
	if st := r.URL.Query().Get("status"); st != "" {
		status = &st
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	items, total, err := h.service.ListItems(r.Context(), projectID, entityType, status, pageSize, (page-1)*pageSize)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// GetRevisions returns an item's revision chain.
func (h *HTTPHandler) GetRevisions(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	revisions, err := h.service.GetRevisions(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"revisions": revisions})
}

// GetAuditTrail returns an item's audit log.
func (h *HTTPHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Item ID is required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.GetAuditTrail(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"audit": entries})
}

// GetPending returns the items awaiting action from a user.
func (h *HTTPHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	userID := r.URL.Query().Get("user_id")
	if projectID == "" || userID == "" {
		http.Error(w, "Project ID and User ID are required", http.StatusBadRequest)
		return
	}

	items, err := h.service.GetPendingForUser(r.Context(), projectID, userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// GetNextNumber previews the display number the next submission in a scope
// would receive without consuming it.
func (h *HTTPHandler) GetNextNumber(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "Project ID is required", http.StatusBadRequest)
		return
	}
	entityType := repository.EntityType(r.URL.Query().Get("entity_type"))

	var specSection *string
	if ss := r.URL.Query().Get("spec_section"); ss != "" {
		specSection = &ss
	}

	number, err := h.service.PreviewNextNumber(r.Context(), projectID, entityType, specSection)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"display_number": number})
}

// GetRollup returns the project's cost/schedule impact rollup.
func (h *HTTPHandler) GetRollup(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		http.Error(w, "Project ID is required", http.StatusBadRequest)
		return
	}

	rollup, err := h.service.Rollup(r.Context(), projectID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, rollup)
}

// ── Response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

// respondError maps typed application errors to HTTP statuses and returns a
// structured body so clients can render an actionable message (current
// status, attempted action, legal actions, required role).
func (h *HTTPHandler) respondError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(code))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": err.Error(),
			"details": apperr.DetailsOf(err),
		},
	})
}
