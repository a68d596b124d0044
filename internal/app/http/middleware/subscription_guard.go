package middleware

import (
	"net/http"

	"billing-app/database"
	"billing-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// RequireActiveSubscription gates paid features on the billing status the
// webhook reconciler maintains. Anything but "active" (including past_due)
// is paywalled.
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		var user users.User

		if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "User not found",
			})
			return
		}

		if user.StripeStatus != users.StatusActive {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Active subscription required",
			})
			return
		}

		c.Next()
	}
}
