package store

import (
	"billing-app/internal/domain/users"
	"billing-app/internal/reconcile"

	"gorm.io/gorm"
)

// UserStore is the gorm-backed implementation of reconcile.UserStore.
type UserStore struct {
	db *gorm.DB
}

var _ reconcile.UserStore = (*UserStore)(nil)

func New(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByID(id uint) (*users.User, error) {
	var user users.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(email string) (*users.User, error) {
	var user users.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindBySubscriptionID(subscriptionID string) (*users.User, error) {
	var user users.User
	if err := s.db.Where("stripe_subscription_id = ?", subscriptionID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateBillingFields writes only the fields present in the update.
func (s *UserStore) UpdateBillingFields(id uint, update reconcile.BillingUpdate) error {
	updates := map[string]interface{}{}
	if update.CustomerID != nil {
		updates["stripe_customer_id"] = *update.CustomerID
	}
	if update.SubscriptionID != nil {
		updates["stripe_subscription_id"] = *update.SubscriptionID
	}
	if update.PriceID != nil {
		updates["stripe_price_id"] = *update.PriceID
	}
	if update.Status != nil {
		updates["stripe_status"] = *update.Status
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.Model(&users.User{}).Where("id = ?", id).Updates(updates).Error
}

func (s *UserStore) UpdateStatusBySubscriptionID(subscriptionID, status string) error {
	return s.db.Model(&users.User{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Update("stripe_status", status).Error
}
