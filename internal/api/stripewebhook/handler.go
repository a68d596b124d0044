package stripewebhooks

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"billing-app/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// Handler verifies Stripe webhook signatures and hands decoded events to
// the reconciler.
type Handler struct {
	Reconciler *reconcile.Reconciler
	Secret     string
}

func NewHandler(r *reconcile.Reconciler, secret string) *Handler {
	return &Handler{Reconciler: r, Secret: secret}
}

func (h *Handler) Handle(c *gin.Context) {
	if h.Secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Println("❌ Stripe signature verification failed:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	// Best-effort from here on: Stripe retries failed deliveries, and a
	// retry would repeat side effects without fixing anything, so a
	// verified event is always acknowledged.
	if ev, ok := decodeEvent(event); ok {
		if err := h.Reconciler.Apply(ev); err != nil {
			log.Printf("⚠️ webhook: error handling %s: %v", event.Type, err)
		}
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

// decodeEvent maps a Stripe event onto the reconciler's event union.
// Unknown or undecodable events report ok=false and are acknowledged
// without processing.
func decodeEvent(event stripe.Event) (reconcile.Event, bool) {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Printf("⚠️ webhook: failed to parse checkout session: %v", err)
			return nil, false
		}
		ev := reconcile.CheckoutCompleted{
			SessionID:   session.ID,
			UserID:      session.Metadata["userId"],
			AmountTotal: session.AmountTotal,
		}
		if session.Subscription != nil {
			ev.SubscriptionID = session.Subscription.ID
		}
		if session.Customer != nil {
			ev.CustomerID = session.Customer.ID
		}
		if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
			ev.CustomerEmail = session.CustomerDetails.Email
		} else {
			ev.CustomerEmail = session.CustomerEmail
		}
		if session.PaymentIntent != nil {
			ev.PaymentIntentID = session.PaymentIntent.ID
		}
		return ev, true

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			log.Printf("⚠️ webhook: failed to parse invoice: %v", err)
			return nil, false
		}
		ev := reconcile.InvoicePaymentSucceeded{
			CustomerEmail: invoice.CustomerEmail,
			AmountPaid:    firstNonZero(invoice.AmountPaid, invoice.Total),
		}
		if invoice.Subscription != nil {
			ev.SubscriptionID = invoice.Subscription.ID
		}
		return ev, true

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			log.Printf("⚠️ webhook: failed to parse invoice: %v", err)
			return nil, false
		}
		ev := reconcile.InvoicePaymentFailed{
			CustomerEmail: invoice.CustomerEmail,
			AmountDue:     firstNonZero(invoice.AmountDue, invoice.Total),
		}
		if invoice.Subscription != nil {
			ev.SubscriptionID = invoice.Subscription.ID
		}
		return ev, true

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("⚠️ webhook: failed to parse subscription: %v", err)
			return nil, false
		}
		return reconcile.SubscriptionDeleted{SubscriptionID: sub.ID}, true

	default:
		return nil, false
	}
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
