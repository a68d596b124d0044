package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioBaseURL = "https://api.twilio.com"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Config holds the WhatsApp provider settings read from the environment.
type Config struct {
	Provider string // "twilio" | "generic"; empty picks by what is configured

	APIURL   string
	APIToken string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// NewSender selects a sender from the config. Returns nil when neither
// provider is fully configured, which disables outbound notifications.
func NewSender(cfg Config) Sender {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		if cfg.APIURL != "" {
			provider = "generic"
		} else {
			provider = "twilio"
		}
	}

	if provider == "twilio" {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
			return nil
		}
		from := cfg.TwilioFrom
		if from == "" {
			from = "whatsapp:+14155238886" // Twilio sandbox number
		}
		return &TwilioSender{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       from,
			BaseURL:    twilioBaseURL,
		}
	}

	if cfg.APIURL == "" || cfg.APIToken == "" {
		return nil
	}
	return &GenericSender{URL: cfg.APIURL, Token: cfg.APIToken}
}

// GenericSender posts {to, message} JSON to a WhatsApp gateway with a
// bearer token.
type GenericSender struct {
	URL   string
	Token string
}

func (s *GenericSender) Send(to, message string) error {
	body, err := json.Marshal(map[string]string{
		"to":      ensurePlus(to),
		"message": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp gateway returned %s", resp.Status)
	}
	return nil
}

// TwilioSender sends through the Twilio Messages API with the whatsapp:
// address scheme.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

func (s *TwilioSender) Send(to, message string) error {
	form := url.Values{}
	form.Set("To", "whatsapp:"+ensurePlus(to))
	form.Set("From", s.From)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.BaseURL, s.AccountSID)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio returned %s", resp.Status)
	}
	return nil
}

func ensurePlus(number string) string {
	if number == "" || strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + number
}
