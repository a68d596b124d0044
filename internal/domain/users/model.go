package users

import (
	"time"
)

// Billing status values stored in stripe_status. A user with no
// subscription id always carries StatusNone.
const (
	StatusNone     = "none"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string

	StripeCustomerID     *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;uniqueIndex:idx_users_stripe_subscription_id"`
	StripePriceID        *string `gorm:"column:stripe_price_id"`
	StripeStatus         string  `gorm:"column:stripe_status;not null;default:'none'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
