package handlers

import (
	"net/http"

	"claimflow/internal/app"
	"claimflow/internal/common"
	"claimflow/internal/domain/claim"
	"claimflow/internal/domain/eligibility"
	"claimflow/internal/http/middleware"
	"claimflow/internal/http/response"
)

// ClaimHandler serves the claimant-facing journey routes. Every route
// resolves the claimant's current claim set; individual claim IDs never
// appear on this surface.
type ClaimHandler struct {
	claims *app.ClaimService
}

func NewClaimHandler(claims *app.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

type startJourneyRequest struct {
	Policies     []string          `json:"policies"`
	AcademicYear string            `json:"academic_year"`
	Answers      app.SharedAnswers `json:"answers"`
}

type updateClaimsRequest struct {
	Shared      *app.SharedAnswers        `json:"shared,omitempty"`
	Eligibility *updateEligibilityRequest `json:"eligibility,omitempty"`
	// ResetDependentAnswers clears answers downstream of a changed gating
	// answer on every claim in the journey.
	ResetDependentAnswers bool `json:"reset_dependent_answers,omitempty"`
}

type updateEligibilityRequest struct {
	Policy string            `json:"policy"`
	Patch  eligibility.Patch `json:"patch"`
}

type submitRequest struct {
	Policy string `json:"policy,omitempty"`
}

type journeyView struct {
	MainClaimID common.UUID    `json:"main_claim_id"`
	Claims      []*claim.Claim `json:"claims"`
}

func newJourneyView(set *app.ClaimSet) journeyView {
	return journeyView{MainClaimID: set.MainClaim().ID, Claims: set.Claims()}
}

func (h *ClaimHandler) StartJourney(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req startJourneyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if len(req.Policies) == 0 {
		response.Error(w, common.NewError(common.CodeValidation, "at least one policy is required", nil))
		return
	}
	policies := make([]eligibility.Policy, 0, len(req.Policies))
	for _, p := range req.Policies {
		policies = append(policies, eligibility.Policy(p))
	}
	year, err := claim.ParseAcademicYear(req.AcademicYear)
	if err != nil {
		response.Error(w, err)
		return
	}
	set, err := h.claims.StartJourney(r.Context(), claimantID, policies, year, req.Answers)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, newJourneyView(set))
}

func (h *ClaimHandler) Current(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	set, err := h.claims.CurrentSet(r.Context(), claimantID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, newJourneyView(set))
}

func (h *ClaimHandler) Update(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req updateClaimsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	set, err := h.claims.CurrentSet(r.Context(), claimantID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if req.Shared != nil {
		if err := h.claims.UpdateShared(r.Context(), set, *req.Shared); err != nil {
			response.Error(w, err)
			return
		}
	}
	if req.Eligibility != nil {
		if err := h.claims.UpdateEligibility(r.Context(), set, eligibility.Policy(req.Eligibility.Policy), req.Eligibility.Patch); err != nil {
			response.Error(w, err)
			return
		}
	}
	if req.ResetDependentAnswers {
		if err := h.claims.ResetDependentAnswers(r.Context(), set); err != nil {
			response.Error(w, err)
			return
		}
	}
	response.JSON(w, http.StatusOK, newJourneyView(set))
}

// Submit refreshes the contact verification state and submits the claim for
// the named policy, defaulting to the main claim.
func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claimantID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil && !common.Is(err, common.CodeValidation) {
		response.Error(w, err)
		return
	}
	set, err := h.claims.CurrentSet(r.Context(), claimantID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.claims.RefreshContactVerification(r.Context(), set); err != nil {
		response.Error(w, err)
		return
	}
	target := set.MainClaim()
	if req.Policy != "" {
		target = set.ClaimFor(eligibility.Policy(req.Policy))
		if target == nil {
			response.Error(w, common.NewError(common.CodeNotFound, "no claim for policy in this journey", nil))
			return
		}
	}
	submitted, err := h.claims.Submit(r.Context(), target.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, submitted)
}
