package routes

import (
	authapi "billing-app/internal/api/auth"
	"billing-app/internal/api/billing"
	stripewebhooks "billing-app/internal/api/stripewebhook"
	usersapi "billing-app/internal/api/users"
	"billing-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, hooks *stripewebhooks.Handler) {
	// Raw body route: signature verification needs the unmodified payload.
	r.POST("/webhook", hooks.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// One-time product payments may come from anonymous buyers.
	r.POST("/api/payment", billing.CreatePayment)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", usersapi.GetCurrentUser)
	auth.POST("/change-password", authapi.ChangePassword)
	auth.POST("/create-checkout-session", billing.CreateCheckoutSession)
	auth.POST("/billing-portal", billing.CreateBillingPortal)
	auth.POST("/api/checkout", billing.CheckoutAPI)

	// Subscribed users
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireActiveSubscription())
	subscribed.GET("/dashboard", usersapi.GetCurrentUser)
}
