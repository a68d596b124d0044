package users

import (
	"net/http"

	"billing-app/database"
	"billing-app/internal/domain/users"
	stripeinfra "billing-app/internal/infra/stripe"

	"github.com/gin-gonic/gin"
)

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp := MeResponse{
		User: UserDTO{
			ID:           user.ID,
			Email:        user.Email,
			Role:         user.Role,
			AuthProvider: user.AuthProvider,
		},
		Billing: BillingDTO{
			Status:         stripeinfra.NormalizeStatus(user.StripeStatus),
			CustomerID:     user.StripeCustomerID,
			SubscriptionID: user.StripeSubscriptionID,
			PriceID:        user.StripePriceID,
		},
	}

	c.JSON(http.StatusOK, resp)
}
