package stripe

import (
	"fmt"
	"sync"
	"time"

	"billing-app/internal/reconcile"
)

// Fake is an in-memory reconcile.ProviderClient with isolated per-instance
// state. It stands in for the live API when no Stripe key is configured
// and backs tests that need a provider they can seed and inspect.
type Fake struct {
	mu            sync.Mutex
	seq           int
	subscriptions map[string]*reconcile.Subscription
	intentAmounts map[string]int64
	canceled      []string
}

var _ reconcile.ProviderClient = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		subscriptions: make(map[string]*reconcile.Subscription),
		intentAmounts: make(map[string]int64),
	}
}

// SeedSubscription registers a subscription snapshot for later retrieval.
func (f *Fake) SeedSubscription(id string, metadata map[string]string, priceIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[id] = &reconcile.Subscription{
		ID:       id,
		Metadata: copyMetadata(metadata),
		PriceIDs: priceIDs,
	}
}

// SeedPaymentIntent registers an amount for GetPaymentIntentAmount.
func (f *Fake) SeedPaymentIntent(id string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentAmounts[id] = amount
}

// NewID generates a unique mock identifier with the given prefix.
func (f *Fake) NewID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixMilli(), f.seq)
}

// GetSubscription returns a copy of the stored snapshot. Unknown ids yield
// an empty snapshot rather than an error, mirroring a subscription created
// outside this process.
func (f *Fake) GetSubscription(id string) (*reconcile.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[id]
	if !ok {
		return &reconcile.Subscription{ID: id, Metadata: map[string]string{}}, nil
	}
	return &reconcile.Subscription{
		ID:       sub.ID,
		Metadata: copyMetadata(sub.Metadata),
		PriceIDs: append([]string(nil), sub.PriceIDs...),
	}, nil
}

func (f *Fake) UpdateSubscriptionMetadata(id string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[id]
	if !ok {
		sub = &reconcile.Subscription{ID: id, Metadata: map[string]string{}}
		f.subscriptions[id] = sub
	}
	for k, v := range metadata {
		sub.Metadata[k] = v
	}
	return nil
}

func (f *Fake) CancelSubscription(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscriptions, id)
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *Fake) GetPaymentIntentAmount(id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if amount, ok := f.intentAmounts[id]; ok {
		return amount, nil
	}
	return 1000, nil
}

// Canceled lists the subscription ids cancelled through this fake.
func (f *Fake) Canceled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.canceled...)
}

func copyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
