package main

import (
	"time"

	"billing-app/config"
	"billing-app/database"
	stripewebhooks "billing-app/internal/api/stripewebhook"
	routes "billing-app/internal/app/http"
	stripeinfra "billing-app/internal/infra/stripe"
	"billing-app/internal/infra/store"
	"billing-app/internal/notify"
	"billing-app/internal/reconcile"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	var provider reconcile.ProviderClient
	if config.STRIPE_SECRET_KEY != "" {
		provider = stripeinfra.NewClient(config.STRIPE_SECRET_KEY)
	} else {
		provider = stripeinfra.NewFake()
	}

	sender := notify.NewSender(notify.Config{
		Provider:         config.WA_PROVIDER,
		APIURL:           config.WA_API_URL,
		APIToken:         config.WA_API_TOKEN,
		TwilioAccountSID: config.TWILIO_ACCOUNT_SID,
		TwilioAuthToken:  config.TWILIO_AUTH_TOKEN,
		TwilioFrom:       config.WA_FROM,
	})
	dispatcher := notify.NewDispatcher(sender)

	reconciler := reconcile.New(store.New(database.DB), provider, dispatcher, config.ADMIN_WHATSAPP)
	hooks := stripewebhooks.NewHandler(reconciler, config.STRIPE_WEBHOOK_SECRET)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, hooks)

	r.Run(":" + config.PORT)
}
