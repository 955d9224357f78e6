package controller

import (
	"net/http"

	"github.com/corvael/provision-api/internal/service"
)

// ProvisionController handles provisioning HTTP requests.
type ProvisionController struct {
	provisionService *service.ProvisionService
}

// NewProvisionController creates a new ProvisionController.
func NewProvisionController(provisionService *service.ProvisionService) *ProvisionController {
	return &ProvisionController{provisionService: provisionService}
}

// Provision handles POST /api/v1/provision
func (h *ProvisionController) Provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.provisionService.Provision(r.Context(), req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ProvisionResponse{
		Success:          true,
		UserID:           res.UserID.String(),
		Email:            res.Email,
		SubscriptionTier: string(res.Tier),
		SignInURL:        res.SignInURL,
	}
	if res.AlreadyProcessed {
		resp.Message = "Payment already processed"
	}
	writeJSON(w, http.StatusOK, resp)
}
