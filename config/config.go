package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT        string
	DB_URL      string
	JWT_SECRET  string
	APP_URL     string
	CORS_ORIGIN string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	STRIPE_PRICE_ID       string

	ADMIN_WHATSAPP     string
	WA_PROVIDER        string
	WA_API_URL         string
	WA_API_TOKEN       string
	WA_FROM            string
	TWILIO_ACCOUNT_SID string
	TWILIO_AUTH_TOKEN  string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")

	// Empty Stripe key switches the app to the in-memory fake provider.
	STRIPE_SECRET_KEY = getEnv("STRIPE_SECRET_KEY", "")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")
	STRIPE_PRICE_ID = getEnv("STRIPE_PRICE_ID", "")

	ADMIN_WHATSAPP = getEnv("ADMIN_WHATSAPP", "")
	WA_PROVIDER = getEnv("WA_PROVIDER", "")
	WA_API_URL = getEnv("WA_API_URL", "")
	WA_API_TOKEN = getEnv("WA_API_TOKEN", "")
	WA_FROM = getEnv("WA_FROM", "")
	TWILIO_ACCOUNT_SID = getEnv("TWILIO_ACCOUNT_SID", "")
	TWILIO_AUTH_TOKEN = getEnv("TWILIO_AUTH_TOKEN", "")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	if STRIPE_SECRET_KEY == "" {
		log.Println("⚠️ STRIPE_SECRET_KEY not set. Using in-memory mock payment provider.")
	}
	if ADMIN_WHATSAPP == "" {
		log.Println("⚠️ ADMIN_WHATSAPP not set. Payment notifications disabled.")
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
