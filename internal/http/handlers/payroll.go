package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"claimflow/internal/app"
	"claimflow/internal/common"
	"claimflow/internal/http/middleware"
	"claimflow/internal/http/response"
)

// PayrollHandler exposes the payrollable queue to the payroll exporter and
// takes back its run results.
type PayrollHandler struct {
	payroll *app.PayrollService
}

func NewPayrollHandler(payroll *app.PayrollService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll}
}

type paymentRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	PayrollRunAt time.Time       `json:"payroll_run_at"`
}

type topupRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *PayrollHandler) ListPayrollable(w http.ResponseWriter, r *http.Request) {
	items, err := h.payroll.ListPayrollable(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *PayrollHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	claimID, err := idFromPath(r, 2)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.PayrollRunAt.IsZero() {
		response.Error(w, common.NewError(common.CodeValidation, "payroll_run_at is required", nil))
		return
	}
	payment, err := h.payroll.RecordPayment(r.Context(), claimID, req.Amount, req.PayrollRunAt)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, payment)
}

func (h *PayrollHandler) RecordTopup(w http.ResponseWriter, r *http.Request) {
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
	var req topupRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	topup, err := h.payroll.RecordTopup(r.Context(), claimID, req.Amount, operatorID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, topup)
}
