package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// MailNotifier sends OTP mail through an HTTP mail gateway. When no
// gateway token is configured the notifier is disabled and Send fails,
// which makes the OTP manager roll the issuance back instead of silently
// reporting a code as delivered.
type MailNotifier struct {
	gatewayURL string
	token      string
	enabled    bool
	client     *http.Client
}

// NewMailNotifier creates a new mail notifier from environment
func NewMailNotifier() *MailNotifier {
	url := os.Getenv("MAIL_GATEWAY_URL")
	token := os.Getenv("MAIL_GATEWAY_TOKEN")
	return &MailNotifier{
		gatewayURL: url,
		token:      token,
		enabled:    url != "" && token != "",
		client:     &http.Client{},
	}
}

// IsEnabled checks if the notifier is configured
func (n *MailNotifier) IsEnabled() bool {
	return n.enabled
}

// Send dispatches one message to the destination address
func (n *MailNotifier) Send(ctx context.Context, destination, subject, body string) error {
	if !n.enabled {
		return fmt.Errorf("mail gateway not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"to":      destination,
		"subject": subject,
		"body":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway returned %d", resp.StatusCode)
	}
	return nil
}
