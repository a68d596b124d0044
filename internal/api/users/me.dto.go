package users

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
}

// BillingDTO mirrors the billing quadruple kept on the user row.
type BillingDTO struct {
	Status         string  `json:"status"`
	CustomerID     *string `json:"customer_id,omitempty"`
	SubscriptionID *string `json:"subscription_id,omitempty"`
	PriceID        *string `json:"price_id,omitempty"`
}
