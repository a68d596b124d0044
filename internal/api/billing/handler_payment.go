package billing

import (
	"fmt"
	"math"
	"net/http"

	"billing-app/config"
	"billing-app/database"
	"billing-app/internal/domain/users"
	"billing-app/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/price"
)

const pixInstallmentCount = 10

// CheckoutAPI starts a checkout for a named product and returns {url}.
// Card pays in one session with card installments enabled; Pix is modelled
// as a monthly subscription capped at pixInstallmentCount charges via
// subscription metadata, which the webhook reconciler counts down.
func CheckoutAPI(c *gin.Context) {
	var body struct {
		PaymentMethod string  `json:"payment_method"`
		Amount        float64 `json:"amount"`
		ProductName   string  `json:"product_name"`
		CustomerPhone string  `json:"customer_phone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	switch body.PaymentMethod {
	case "card", "pix":
		if body.Amount <= 0 || body.ProductName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing amount or product_name"})
			return
		}
	default:
		// fall through to the configured subscription price
		CreateCheckoutSession(c)
		return
	}

	unitAmount := int64(math.Round(body.Amount * 100))
	sessionMetadata := map[string]string{
		"customerPhone": body.CustomerPhone,
		"productName":   body.ProductName,
		"userId":        fmt.Sprint(user.ID),
	}

	if body.PaymentMethod == "card" {
		params := &stripe.CheckoutSessionParams{
			Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			PaymentMethodOptions: &stripe.CheckoutSessionPaymentMethodOptionsParams{
				Card: &stripe.CheckoutSessionPaymentMethodOptionsCardParams{
					Installments: &stripe.CheckoutSessionPaymentMethodOptionsCardInstallmentsParams{
						Enabled: stripe.Bool(true),
					},
				},
			},
			LineItems: []*stripe.CheckoutSessionLineItemParams{
				{
					PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
						Currency:   stripe.String("brl"),
						UnitAmount: stripe.Int64(unitAmount),
						ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
							Name: stripe.String(body.ProductName),
						},
					},
					Quantity: stripe.Int64(1),
				},
			},
			SuccessURL: stripe.String(config.APP_URL + "/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:  stripe.String(config.APP_URL + "/"),
		}
		params.Metadata = sessionMetadata

		s, err := checkoutsession.New(params)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": s.URL})
		return
	}

	// Pix: one recurring price per checkout, amount split across the
	// installments, with the cap recorded in subscription metadata.
	installmentPrice, err := price.New(&stripe.PriceParams{
		Currency:   stripe.String("brl"),
		UnitAmount: stripe.Int64(unitAmount / pixInstallmentCount),
		Recurring: &stripe.PriceRecurringParams{
			Interval:      stripe.String("month"),
			IntervalCount: stripe.Int64(1),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(fmt.Sprintf("%s (Pix %dx)", body.ProductName, pixInstallmentCount)),
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create installment price", "details": err.Error()})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"pix"}),
		PaymentMethodOptions: &stripe.CheckoutSessionPaymentMethodOptionsParams{
			Pix: &stripe.CheckoutSessionPaymentMethodOptionsPixParams{
				ExpiresAfterSeconds: stripe.Int64(3600),
			},
		},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(installmentPrice.ID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Description: stripe.String("Pix installment plan"),
			Metadata: map[string]string{
				reconcile.MetaMaxInstallments: fmt.Sprint(pixInstallmentCount),
				reconcile.MetaPaymentsMade:    "0",
			},
		},
		SuccessURL: stripe.String(config.APP_URL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(config.APP_URL + "/"),
	}
	params.Metadata = sessionMetadata

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}

// CreatePayment starts a one-time payment session for a product purchase
// (card or Pix). No authentication: payments may come from anonymous
// buyers, which the reconciler treats as valid unlinked checkouts.
func CreatePayment(c *gin.Context) {
	var body struct {
		Name       string   `json:"name"`
		UnitAmount int64    `json:"unit_amount"`
		Quantity   int64    `json:"quantity"`
		Images     []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" || body.UnitAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name or unit_amount"})
		return
	}
	if body.Quantity <= 0 {
		body.Quantity = 1
	}

	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "pix"}),
		PaymentMethodOptions: &stripe.CheckoutSessionPaymentMethodOptionsParams{
			Card: &stripe.CheckoutSessionPaymentMethodOptionsCardParams{
				Installments: &stripe.CheckoutSessionPaymentMethodOptionsCardInstallmentsParams{
					Enabled: stripe.Bool(true),
				},
			},
		},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("brl"),
					UnitAmount: stripe.Int64(body.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:   stripe.String(body.Name),
						Images: stripe.StringSlice(body.Images),
					},
				},
				Quantity: stripe.Int64(body.Quantity),
			},
		},
		SuccessURL: stripe.String(config.APP_URL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(config.APP_URL + "/"),
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}
