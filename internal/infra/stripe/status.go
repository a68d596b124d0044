package stripe

import "strings"

// NormalizeStatus maps a Stripe-reported subscription status onto the
// local billing vocabulary (none/active/past_due/canceled).
func NormalizeStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "":
		return "none"
	case "active", "trialing":
		return "active"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return strings.TrimSpace(s)
	}
}
