package reconcile

import (
	"errors"
	"strings"
	"testing"

	"billing-app/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPhone = "5511999999999"

type fakeStore struct {
	users map[uint]*users.User

	findErr   error
	updateErr error
	statusErr error

	billingUpdates int
	statusUpdates  int
}

func newFakeStore(us ...*users.User) *fakeStore {
	s := &fakeStore{users: map[uint]*users.User{}}
	for _, u := range us {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) FindByID(id uint) (*users.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (s *fakeStore) FindByEmail(email string) (*users.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (s *fakeStore) FindBySubscriptionID(subscriptionID string) (*users.User, error) {
	for _, u := range s.users {
		if u.StripeSubscriptionID != nil && *u.StripeSubscriptionID == subscriptionID {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (s *fakeStore) UpdateBillingFields(id uint, update BillingUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	s.billingUpdates++
	if update.CustomerID != nil {
		u.StripeCustomerID = update.CustomerID
	}
	if update.SubscriptionID != nil {
		u.StripeSubscriptionID = update.SubscriptionID
	}
	if update.PriceID != nil {
		u.StripePriceID = update.PriceID
	}
	if update.Status != nil {
		u.StripeStatus = *update.Status
	}
	return nil
}

func (s *fakeStore) UpdateStatusBySubscriptionID(subscriptionID, status string) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusUpdates++
	// Matching no row is not an error, same as an UPDATE over zero rows.
	for _, u := range s.users {
		if u.StripeSubscriptionID != nil && *u.StripeSubscriptionID == subscriptionID {
			u.StripeStatus = status
		}
	}
	return nil
}

type fakeProvider struct {
	subs          map[string]*Subscription
	intentAmounts map[string]int64

	getErr    error
	updateErr error
	cancelErr error
	intentErr error

	canceled []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		subs:          map[string]*Subscription{},
		intentAmounts: map[string]int64{},
	}
}

func (p *fakeProvider) seed(id string, metadata map[string]string, priceIDs ...string) {
	md := map[string]string{}
	for k, v := range metadata {
		md[k] = v
	}
	p.subs[id] = &Subscription{ID: id, Metadata: md, PriceIDs: priceIDs}
}

func (p *fakeProvider) GetSubscription(id string) (*Subscription, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	sub, ok := p.subs[id]
	if !ok {
		return &Subscription{ID: id, Metadata: map[string]string{}}, nil
	}
	md := map[string]string{}
	for k, v := range sub.Metadata {
		md[k] = v
	}
	return &Subscription{ID: sub.ID, Metadata: md, PriceIDs: sub.PriceIDs}, nil
}

func (p *fakeProvider) UpdateSubscriptionMetadata(id string, metadata map[string]string) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	sub, ok := p.subs[id]
	if !ok {
		sub = &Subscription{ID: id, Metadata: map[string]string{}}
		p.subs[id] = sub
	}
	for k, v := range metadata {
		sub.Metadata[k] = v
	}
	return nil
}

func (p *fakeProvider) CancelSubscription(id string) error {
	if p.cancelErr != nil {
		return p.cancelErr
	}
	p.canceled = append(p.canceled, id)
	delete(p.subs, id)
	return nil
}

func (p *fakeProvider) GetPaymentIntentAmount(id string) (int64, error) {
	if p.intentErr != nil {
		return 0, p.intentErr
	}
	return p.intentAmounts[id], nil
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Notify(phone, text string) {
	n.messages = append(n.messages, text)
}

func activeUser(id uint, email, subID string) *users.User {
	u := &users.User{ID: id, Email: email, StripeStatus: users.StatusActive}
	if subID != "" {
		u.StripeSubscriptionID = &subID
	}
	return u
}

func TestCheckoutCompletedLinksUserByMetadata(t *testing.T) {
	user := &users.User{ID: 42, Email: "ana@example.com", StripeStatus: users.StatusNone}
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", nil, "price_basic")
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, adminPhone)
	err := r.Apply(CheckoutCompleted{
		SessionID:      "cs_1",
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		UserID:         "42",
		CustomerEmail:  "ana@example.com",
		AmountTotal:    5000,
	})

	require.NoError(t, err)
	require.NotNil(t, user.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *user.StripeSubscriptionID)
	assert.Equal(t, "cus_1", *user.StripeCustomerID)
	assert.Equal(t, "price_basic", *user.StripePriceID)
	assert.Equal(t, users.StatusActive, user.StripeStatus)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "50.00")
	assert.Contains(t, notifier.messages[0], "subscription")
}

func TestCheckoutCompletedFallsBackToEmail(t *testing.T) {
	user := &users.User{ID: 7, Email: "bob@example.com", StripeStatus: users.StatusNone}
	store := newFakeStore(user)

	r := New(store, newFakeProvider(), &fakeNotifier{}, adminPhone)
	err := r.Apply(CheckoutCompleted{
		SessionID:     "cs_2",
		CustomerID:    "cus_7",
		CustomerEmail: "bob@example.com",
		AmountTotal:   1500,
	})

	require.NoError(t, err)
	assert.Equal(t, users.StatusActive, user.StripeStatus)
	assert.Equal(t, "cus_7", *user.StripeCustomerID)
	assert.Nil(t, user.StripeSubscriptionID)
}

func TestCheckoutCompletedStoreUpdateSurvivesAmountLookupFailure(t *testing.T) {
	user := &users.User{ID: 42, Email: "ana@example.com", StripeStatus: users.StatusNone}
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.intentErr = errors.New("rate limited")

	r := New(store, provider, &fakeNotifier{}, adminPhone)
	err := r.Apply(CheckoutCompleted{
		SessionID:       "cs_3",
		UserID:          "42",
		PaymentIntentID: "pi_1",
	})

	require.NoError(t, err)
	assert.Equal(t, users.StatusActive, user.StripeStatus)
	assert.Equal(t, 1, store.billingUpdates)
}

func TestCheckoutCompletedUnresolvedUserIsNoMutation(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}

	r := New(store, newFakeProvider(), notifier, adminPhone)
	err := r.Apply(CheckoutCompleted{
		SessionID:     "cs_4",
		CustomerEmail: "stranger@example.com",
		AmountTotal:   2000,
	})

	require.NoError(t, err)
	assert.Zero(t, store.billingUpdates)
	// Anonymous payments still reach the admin.
	assert.Len(t, notifier.messages, 1)
}

func TestInvoiceSucceededWithoutSubscriptionIsNoOp(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, adminPhone)
	err := r.Apply(InvoicePaymentSucceeded{AmountPaid: 999})

	require.NoError(t, err)
	assert.Zero(t, store.statusUpdates)
	assert.Empty(t, notifier.messages)
	assert.Empty(t, provider.canceled)
}

func TestInvoiceSucceededIncrementsCounterAndPreservesMetadata(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", map[string]string{
		MetaMaxInstallments: "3",
		MetaPaymentsMade:    "0",
		"plan":              "pix-10x",
	})
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, adminPhone)
	err := r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", CustomerEmail: "ana@example.com", AmountPaid: 1000})

	require.NoError(t, err)
	assert.Equal(t, "1", provider.subs["sub_1"].Metadata[MetaPaymentsMade])
	assert.Equal(t, "pix-10x", provider.subs["sub_1"].Metadata["plan"])
	assert.Equal(t, users.StatusActive, user.StripeStatus)
	assert.Empty(t, provider.canceled)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "1/3")
}

func TestInvoiceSucceededUnboundedNeverCancels(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", nil)

	r := New(store, provider, &fakeNotifier{}, adminPhone)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	}

	assert.Empty(t, provider.canceled)
	assert.Equal(t, "5", provider.subs["sub_1"].Metadata[MetaPaymentsMade])
	assert.Equal(t, users.StatusActive, user.StripeStatus)
}

func TestInstallmentPlanRunsToCompletion(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", map[string]string{
		MetaMaxInstallments: "3",
		MetaPaymentsMade:    "0",
	})
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, adminPhone)

	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	assert.Equal(t, "1", provider.subs["sub_1"].Metadata[MetaPaymentsMade])
	assert.Equal(t, users.StatusActive, user.StripeStatus)

	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	assert.Equal(t, users.StatusActive, user.StripeStatus)
	assert.Empty(t, provider.canceled)

	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	assert.Equal(t, []string{"sub_1"}, provider.canceled)
	assert.Equal(t, users.StatusCanceled, user.StripeStatus)
	require.Len(t, notifier.messages, 3)
	assert.Contains(t, notifier.messages[2], "3/3")
}

func TestInvoiceSucceededPastMaxCancelsOnce(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", map[string]string{
		MetaMaxInstallments: "3",
		MetaPaymentsMade:    "2",
	})

	r := New(store, provider, &fakeNotifier{}, adminPhone)
	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))

	assert.Equal(t, []string{"sub_1"}, provider.canceled)
	assert.Equal(t, users.StatusCanceled, user.StripeStatus)
}

func TestInvoiceSucceededCancelFailureIsSwallowed(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", map[string]string{MetaMaxInstallments: "1"})
	provider.cancelErr = errors.New("api down")

	r := New(store, provider, &fakeNotifier{}, adminPhone)
	err := r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000})

	require.NoError(t, err)
	assert.NotEqual(t, users.StatusCanceled, user.StripeStatus)
}

func TestInvoiceSucceededFetchFailureAborts(t *testing.T) {
	store := newFakeStore()
	provider := newFakeProvider()
	provider.getErr = errors.New("network")
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, adminPhone)
	err := r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1"})

	require.Error(t, err)
	assert.Empty(t, notifier.messages)
	assert.Zero(t, store.statusUpdates)
}

func TestInvoiceFailedThenSucceededRoundTrip(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", nil)

	r := New(store, provider, &fakeNotifier{}, adminPhone)

	require.NoError(t, r.Apply(InvoicePaymentFailed{SubscriptionID: "sub_1", AmountDue: 1000}))
	assert.Equal(t, users.StatusPastDue, user.StripeStatus)

	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	assert.Equal(t, users.StatusActive, user.StripeStatus)
}

func TestInvoiceFailedNotifiesEvenWhenStoreFails(t *testing.T) {
	store := newFakeStore()
	store.statusErr = errors.New("db down")
	notifier := &fakeNotifier{}

	r := New(store, newFakeProvider(), notifier, adminPhone)
	err := r.Apply(InvoicePaymentFailed{SubscriptionID: "sub_1", AmountDue: 2500})

	require.NoError(t, err)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "25.00")
}

func TestSubscriptionDeletedIsIdempotent(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	notifier := &fakeNotifier{}

	r := New(store, newFakeProvider(), notifier, adminPhone)

	require.NoError(t, r.Apply(SubscriptionDeleted{SubscriptionID: "sub_1"}))
	assert.Equal(t, users.StatusCanceled, user.StripeStatus)

	require.NoError(t, r.Apply(SubscriptionDeleted{SubscriptionID: "sub_1"}))
	assert.Equal(t, users.StatusCanceled, user.StripeStatus)
	assert.Empty(t, notifier.messages)
}

func TestNoAdminPhoneMeansNoNotifications(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	store := newFakeStore(user)
	provider := newFakeProvider()
	provider.seed("sub_1", nil)
	notifier := &fakeNotifier{}

	r := New(store, provider, notifier, "")
	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))
	require.NoError(t, r.Apply(InvoicePaymentFailed{SubscriptionID: "sub_1", AmountDue: 1000}))

	assert.Empty(t, notifier.messages)
}

func TestApplyUnknownEventIsNoOp(t *testing.T) {
	store := newFakeStore()

	r := New(store, newFakeProvider(), &fakeNotifier{}, adminPhone)
	require.NoError(t, r.Apply(nil))
	assert.Zero(t, store.billingUpdates)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "—", formatAmount(0))
	assert.Equal(t, "0.50", formatAmount(50))
	assert.Equal(t, "1234.00", formatAmount(123400))
}

func TestParseCounterDefaults(t *testing.T) {
	assert.Equal(t, 0, parseCounter(""))
	assert.Equal(t, 0, parseCounter("not-a-number"))
	assert.Equal(t, 0, parseCounter("-3"))
	assert.Equal(t, 10, parseCounter("10"))
}

func TestInstallmentProgressRendering(t *testing.T) {
	user := activeUser(1, "ana@example.com", "sub_1")
	provider := newFakeProvider()
	provider.seed("sub_1", nil)
	notifier := &fakeNotifier{}

	r := New(newFakeStore(user), provider, notifier, adminPhone)
	require.NoError(t, r.Apply(InvoicePaymentSucceeded{SubscriptionID: "sub_1", AmountPaid: 1000}))

	require.Len(t, notifier.messages, 1)
	assert.True(t, strings.Contains(notifier.messages[0], "1/∞"))
}
