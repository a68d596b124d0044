package reconcile

import (
	"fmt"
	"log"
	"strconv"

	"billing-app/internal/domain/users"
)

// Subscription metadata keys used to track installment-plan progress.
const (
	MetaMaxInstallments = "max_installments"
	MetaPaymentsMade    = "payments_made"
)

// BillingUpdate is a partial update of a user's billing fields. Only
// non-nil fields are written.
type BillingUpdate struct {
	CustomerID     *string
	SubscriptionID *string
	PriceID        *string
	Status         *string
}

// UserStore is the persistence surface the reconciler mutates.
type UserStore interface {
	FindByID(id uint) (*users.User, error)
	FindByEmail(email string) (*users.User, error)
	FindBySubscriptionID(subscriptionID string) (*users.User, error)
	UpdateBillingFields(id uint, update BillingUpdate) error
	UpdateStatusBySubscriptionID(subscriptionID, status string) error
}

// Subscription is the provider-side snapshot the reconciler reads back
// before every installment increment. The provider is the source of truth
// for metadata; snapshots are never cached.
type Subscription struct {
	ID       string
	Metadata map[string]string
	PriceIDs []string
}

// ProviderClient wraps the remote payment API calls the reconciler issues.
type ProviderClient interface {
	GetSubscription(id string) (*Subscription, error)
	UpdateSubscriptionMetadata(id string, metadata map[string]string) error
	CancelSubscription(id string) error
	GetPaymentIntentAmount(id string) (int64, error)
}

// Notifier sends a text message to a phone number. Fire-and-forget: the
// implementation must never surface a failure to the caller.
type Notifier interface {
	Notify(phone, text string)
}

// Reconciler turns verified provider events into local user billing state.
// All external effects go through the injected collaborators so they can
// be faked in tests.
type Reconciler struct {
	store      UserStore
	provider   ProviderClient
	notifier   Notifier
	adminPhone string
}

func New(store UserStore, provider ProviderClient, notifier Notifier, adminPhone string) *Reconciler {
	return &Reconciler{
		store:      store,
		provider:   provider,
		notifier:   notifier,
		adminPhone: adminPhone,
	}
}

// Apply dispatches an event to its handler. Unknown event kinds are a no-op.
func (r *Reconciler) Apply(e Event) error {
	switch ev := e.(type) {
	case CheckoutCompleted:
		return r.HandleCheckoutCompleted(ev)
	case InvoicePaymentSucceeded:
		return r.HandleInvoicePaymentSucceeded(ev)
	case InvoicePaymentFailed:
		return r.HandleInvoicePaymentFailed(ev)
	case SubscriptionDeleted:
		return r.HandleSubscriptionDeleted(ev)
	default:
		return nil
	}
}

// HandleCheckoutCompleted links a completed checkout to a local user and
// marks the subscription active. An event that resolves to no user is a
// valid one-off payment, not an error. The admin notification is
// best-effort and never blocks the store mutation.
func (r *Reconciler) HandleCheckoutCompleted(e CheckoutCompleted) error {
	var sub *Subscription
	if e.SubscriptionID != "" {
		s, err := r.provider.GetSubscription(e.SubscriptionID)
		if err != nil {
			log.Printf("⚠️ reconcile: failed to fetch subscription %s: %v", e.SubscriptionID, err)
		} else {
			sub = s
		}
	}

	user := r.resolveCheckoutUser(e)
	if user == nil {
		log.Printf("ℹ️ reconcile: checkout session %s not linked to any user", e.SessionID)
	} else {
		update := BillingUpdate{Status: strPtr(users.StatusActive)}
		if e.CustomerID != "" {
			update.CustomerID = strPtr(e.CustomerID)
		}
		if e.SubscriptionID != "" {
			update.SubscriptionID = strPtr(e.SubscriptionID)
		}
		if sub != nil && len(sub.PriceIDs) > 0 {
			update.PriceID = strPtr(sub.PriceIDs[0])
		}
		if err := r.store.UpdateBillingFields(user.ID, update); err != nil {
			return fmt.Errorf("failed to update user %d after checkout: %w", user.ID, err)
		}
	}

	r.notifyCheckout(e)
	return nil
}

// HandleInvoicePaymentSucceeded increments the installment counter on the
// subscription's metadata and cancels the subscription once the configured
// maximum is reached. maxInstallments of 0 means not an installment plan.
func (r *Reconciler) HandleInvoicePaymentSucceeded(e InvoicePaymentSucceeded) error {
	if e.SubscriptionID == "" {
		return nil
	}

	sub, err := r.provider.GetSubscription(e.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", e.SubscriptionID, err)
	}

	maxInstallments := parseCounter(sub.Metadata[MetaMaxInstallments])
	paymentsMade := parseCounter(sub.Metadata[MetaPaymentsMade]) + 1

	// Merge, not replace: unrelated metadata keys must survive the write-back.
	merged := make(map[string]string, len(sub.Metadata)+1)
	for k, v := range sub.Metadata {
		merged[k] = v
	}
	merged[MetaPaymentsMade] = strconv.Itoa(paymentsMade)

	if err := r.provider.UpdateSubscriptionMetadata(e.SubscriptionID, merged); err != nil {
		return fmt.Errorf("failed to update metadata on subscription %s: %w", e.SubscriptionID, err)
	}

	if r.adminPhone != "" {
		progress := "∞"
		if maxInstallments > 0 {
			progress = strconv.Itoa(maxInstallments)
		}
		msg := fmt.Sprintf("📈 Installment paid: R$ %s\nCustomer: %s\nSubscription: %s\nInstallment: %d/%s",
			formatAmount(e.AmountPaid), customerLabel(e.CustomerEmail), e.SubscriptionID, paymentsMade, progress)
		r.notifier.Notify(r.adminPhone, msg)
	}

	if maxInstallments > 0 && paymentsMade >= maxInstallments {
		if err := r.provider.CancelSubscription(e.SubscriptionID); err != nil {
			log.Printf("⚠️ reconcile: failed to cancel subscription %s after max installments: %v", e.SubscriptionID, err)
			return nil
		}
		if err := r.store.UpdateStatusBySubscriptionID(e.SubscriptionID, users.StatusCanceled); err != nil {
			log.Printf("⚠️ reconcile: failed to mark subscription %s canceled: %v", e.SubscriptionID, err)
		}
		return nil
	}

	return r.store.UpdateStatusBySubscriptionID(e.SubscriptionID, users.StatusActive)
}

// HandleInvoicePaymentFailed marks the subscription past_due and always
// attempts one admin notification, even when the store update fails.
func (r *Reconciler) HandleInvoicePaymentFailed(e InvoicePaymentFailed) error {
	if e.SubscriptionID != "" {
		if err := r.store.UpdateStatusBySubscriptionID(e.SubscriptionID, users.StatusPastDue); err != nil {
			log.Printf("⚠️ reconcile: failed to mark subscription %s past_due: %v", e.SubscriptionID, err)
		}
	}

	if r.adminPhone != "" {
		subLabel := e.SubscriptionID
		if subLabel == "" {
			subLabel = "—"
		}
		msg := fmt.Sprintf("⚠️ Payment failed: R$ %s\nCustomer: %s\nSubscription: %s",
			formatAmount(e.AmountDue), customerLabel(e.CustomerEmail), subLabel)
		r.notifier.Notify(r.adminPhone, msg)
	}
	return nil
}

// HandleSubscriptionDeleted marks the subscription canceled. The deletion
// event is itself the result of a cancellation, so no provider mutation or
// notification follows. Re-delivery for an already-canceled subscription
// is a harmless repeat of the same update.
func (r *Reconciler) HandleSubscriptionDeleted(e SubscriptionDeleted) error {
	if e.SubscriptionID == "" {
		return nil
	}
	return r.store.UpdateStatusBySubscriptionID(e.SubscriptionID, users.StatusCanceled)
}

// resolveCheckoutUser prefers the exact metadata.userId lookup and falls
// back to the checkout's customer email. Nil means no user to link.
func (r *Reconciler) resolveCheckoutUser(e CheckoutCompleted) *users.User {
	if e.UserID != "" {
		id, err := strconv.ParseUint(e.UserID, 10, 64)
		if err != nil {
			log.Printf("⚠️ reconcile: invalid userId %q on session %s", e.UserID, e.SessionID)
			return nil
		}
		user, err := r.store.FindByID(uint(id))
		if err != nil {
			log.Printf("ℹ️ reconcile: user %d from session %s metadata not found", id, e.SessionID)
			return nil
		}
		return user
	}
	if e.CustomerEmail != "" {
		user, err := r.store.FindByEmail(e.CustomerEmail)
		if err != nil {
			return nil
		}
		return user
	}
	return nil
}

func (r *Reconciler) notifyCheckout(e CheckoutCompleted) {
	if r.adminPhone == "" {
		return
	}

	amount := e.AmountTotal
	if amount == 0 && e.PaymentIntentID != "" {
		a, err := r.provider.GetPaymentIntentAmount(e.PaymentIntentID)
		if err != nil {
			log.Printf("⚠️ reconcile: failed to resolve payment intent %s amount: %v", e.PaymentIntentID, err)
		} else {
			amount = a
		}
	}

	kind := "one-time payment"
	if e.SubscriptionID != "" {
		kind = "subscription"
	}
	msg := fmt.Sprintf("💰 Payment received: R$ %s\nCustomer: %s\nType: %s",
		formatAmount(amount), customerLabel(e.CustomerEmail), kind)
	r.notifier.Notify(r.adminPhone, msg)
}

// parseCounter reads an installment counter, defaulting missing or
// malformed values to 0.
func parseCounter(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formatAmount renders integer cents for display. Stored and compared
// values stay in cents; this is notification formatting only.
func formatAmount(cents int64) string {
	if cents == 0 {
		return "—"
	}
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func customerLabel(email string) string {
	if email == "" {
		return "customer"
	}
	return email
}

func strPtr(s string) *string {
	return &s
}
