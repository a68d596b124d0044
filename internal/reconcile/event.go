package reconcile

// Event is the tagged union of provider events the reconciler consumes.
// The webhook endpoint builds these from verified Stripe payloads; tests
// construct them directly. The reconciler behaves identically either way.
type Event interface {
	eventKind() string
}

// CheckoutCompleted carries the fields of a checkout.session.completed
// payload the reconciler cares about. Amounts are integer cents.
type CheckoutCompleted struct {
	SessionID       string
	SubscriptionID  string
	CustomerID      string
	UserID          string // metadata.userId, raw string
	CustomerEmail   string
	AmountTotal     int64
	PaymentIntentID string
}

// InvoicePaymentSucceeded covers a paid invoice. SubscriptionID is empty
// for one-time, non-subscription invoices.
type InvoicePaymentSucceeded struct {
	SubscriptionID string
	CustomerEmail  string
	AmountPaid     int64
}

// InvoicePaymentFailed covers a failed invoice charge.
type InvoicePaymentFailed struct {
	SubscriptionID string
	CustomerEmail  string
	AmountDue      int64
}

// SubscriptionDeleted covers customer.subscription.deleted.
type SubscriptionDeleted struct {
	SubscriptionID string
}

func (CheckoutCompleted) eventKind() string       { return "checkout.session.completed" }
func (InvoicePaymentSucceeded) eventKind() string { return "invoice.payment_succeeded" }
func (InvoicePaymentFailed) eventKind() string    { return "invoice.payment_failed" }
func (SubscriptionDeleted) eventKind() string     { return "customer.subscription.deleted" }
