package dto

// EntitlementStatus is the outcome of a successful entitlement check.
type EntitlementStatus struct {
	Allowed         bool `json:"allowed"`
	UsingFreeTrial  bool `json:"using_free_trial"`
	TokensRemaining int  `json:"tokens_remaining"`
}

type TokenStatusResponse struct {
	TokensRemaining int  `json:"tokens_remaining"`
	TokensTotal     int  `json:"tokens_total"`
	HasFreeTrial    bool `json:"has_free_trial"`
	FreeTrialUsed   bool `json:"free_trial_used"`
}
