package controller

// --- Request DTOs ---

// ProvisionRequest holds the input for provisioning an account from a
// completed payment. The payment intent id is the only client-supplied
// value; everything else comes from the provider's record.
type ProvisionRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

// --- Response DTOs ---

// ProvisionResponse represents a provisioned account in API responses.
// The response is identical for newly created and pre-existing accounts.
type ProvisionResponse struct {
	Success          bool   `json:"success"`
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	SubscriptionTier string `json:"subscriptionTier"`
	SignInURL        string `json:"signInUrl,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ErrorDetails carries optional structured context for an error.
type ErrorDetails struct {
	Field string `json:"field,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Details *ErrorDetails `json:"details,omitempty"`
}
