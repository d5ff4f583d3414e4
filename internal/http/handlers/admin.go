package handlers

import (
	"net/http"
	"strconv"

	"claimflow/internal/app"
	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/decision"
	"claimflow/internal/http/middleware"
	"claimflow/internal/http/response"
)

// AdminHandler serves the operator console routes. State-transition
// responses carry a changed flag so the console can tell a real transition
// from a reported no-op.
type AdminHandler struct {
	claims    *app.ClaimService
	decisions *app.DecisionService
}

func NewAdminHandler(claims *app.ClaimService, decisions *app.DecisionService) *AdminHandler {
	return &AdminHandler{claims: claims, decisions: decisions}
}

type holdRequest struct {
	Reason string `json:"reason"`
}

type decideRequest struct {
	Notes string `json:"notes,omitempty"`
}

type undoDecisionRequest struct {
	Notes string `json:"notes"`
}

type amendRequest struct {
	Changes map[string]string `json:"changes"`
	Notes   string            `json:"notes,omitempty"`
}

type noteRequest struct {
	Body      string `json:"body"`
	Important bool   `json:"important,omitempty"`
}

type assignRequest struct {
	AssigneeID *common.UUID `json:"assignee_id"`
}

type claimChangeResponse struct {
	Claim   *claim.Claim `json:"claim"`
	Changed bool         `json:"changed"`
}

type decisionChangeResponse struct {
	Decision *decision.Decision `json:"decision,omitempty"`
	Changed  bool               `json:"changed"`
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := claim.ListFilter{
		Status:       r.URL.Query().Get("status"),
		AcademicYear: claim.AcademicYear(r.URL.Query().Get("academic_year")),
		Limit:        20,
	}
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			filter.Limit = parsed
		}
	}
	if value := r.URL.Query().Get("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			filter.Offset = parsed
		}
	}
	if value := r.URL.Query().Get("assigned_to"); value != "" {
		assignee, err := common.ParseUUID(value)
		if err != nil {
			response.Error(w, err)
			return
		}
		filter.AssignedTo = &assignee
	}
	items, err := h.claims.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.claims.Get(r.Context(), claimID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *AdminHandler) Hold(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req holdRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	held, changed, err := h.claims.Hold(r.Context(), claimID, req.Reason, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, claimChangeResponse{Claim: held, Changed: changed})
}

func (h *AdminHandler) Unhold(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	unheld, changed, err := h.claims.Unhold(r.Context(), claimID, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, claimChangeResponse{Claim: unheld, Changed: changed})
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, decision.OutcomeApproved)
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, decision.OutcomeRejected)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, outcome decision.Outcome) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req decideRequest
	if err := decodeJSON(r, &req); err != nil && !common.Is(err, common.CodeValidation) {
		response.Error(w, err)
		return
	}
	recorded, changed, err := h.decisions.Decide(r.Context(), claimID, outcome, &operatorID, req.Notes)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, decisionChangeResponse{Decision: recorded, Changed: changed})
}

func (h *AdminHandler) UndoDecision(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req undoDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	undone, changed, err := h.decisions.UndoDecision(r.Context(), claimID, operatorID, req.Notes)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, decisionChangeResponse{Decision: undone, Changed: changed})
}

func (h *AdminHandler) CompleteQA(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	completed, changed, err := h.decisions.CompleteQA(r.Context(), claimID, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, claimChangeResponse{Claim: completed, Changed: changed})
}

func (h *AdminHandler) Amend(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req amendRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	amended, err := h.claims.Amend(r.Context(), claimID, req.Changes, req.Notes, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, amended)
}

func (h *AdminHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	note, err := h.claims.AddNote(r.Context(), claimID, req.Body, req.Important, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, note)
}

func (h *AdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	assigned, err := h.claims.Assign(r.Context(), claimID, req.AssigneeID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, assigned)
}

func (h *AdminHandler) RemovePersonalData(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	scrubbed, changed, err := h.claims.RemovePersonalData(r.Context(), claimID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, claimChangeResponse{Claim: scrubbed, Changed: changed})
}

func (h *AdminHandler) DecisionHistory(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.decisions.History(r.Context(), claimID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}
