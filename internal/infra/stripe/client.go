package stripe

import (
	"billing-app/internal/reconcile"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/paymentintent"
	"github.com/stripe/stripe-go/v75/subscription"
)

// Client implements reconcile.ProviderClient against the live Stripe API.
type Client struct{}

var _ reconcile.ProviderClient = (*Client)(nil)

func NewClient(apiKey string) *Client {
	stripe.Key = apiKey
	return &Client{}
}

func (c *Client) GetSubscription(id string) (*reconcile.Subscription, error) {
	sub, err := subscription.Get(id, nil)
	if err != nil {
		return nil, err
	}
	out := &reconcile.Subscription{
		ID:       sub.ID,
		Metadata: sub.Metadata,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				out.PriceIDs = append(out.PriceIDs, item.Price.ID)
			}
		}
	}
	return out, nil
}

func (c *Client) UpdateSubscriptionMetadata(id string, metadata map[string]string) error {
	params := &stripe.SubscriptionParams{}
	params.Metadata = metadata
	_, err := subscription.Update(id, params)
	return err
}

func (c *Client) CancelSubscription(id string) error {
	_, err := subscription.Cancel(id, nil)
	return err
}

func (c *Client) GetPaymentIntentAmount(id string) (int64, error) {
	pi, err := paymentintent.Get(id, nil)
	if err != nil {
		return 0, err
	}
	return pi.Amount, nil
}
