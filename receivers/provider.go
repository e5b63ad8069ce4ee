// Package receivers holds the outbound side of the dispatch pipeline:
// provider and recipient types, delivery outcomes, destination masking and
// the shared HTTP plumbing used by the per-kind notifiers.
package receivers

import (
	"net/url"
	"strings"
)

// Kind tags the delivery channel a provider belongs to.
type Kind string

const (
	KindSMS     Kind = "sms"
	KindWebhook Kind = "webhook"
)

// Provider is one outbound endpoint. Providers are global, not team-scoped:
// every SMS provider is used for every resolved recipient, and every webhook
// provider receives each rendered message exactly once. The Kind is assigned
// when the provider enters configuration, not re-inferred per dispatch.
type Provider struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Kind    Kind              `json:"-"`
}

// NewProvider builds a Provider, classifying its kind from the URL shape.
func NewProvider(rawURL string, headers map[string]string) Provider {
	return Provider{
		URL:     rawURL,
		Headers: headers,
		Kind:    ClassifyURL(rawURL),
	}
}

// Recipient is a phone number eligible to receive SMS for a team. The label
// is for operators only and never leaves the management surface.
type Recipient struct {
	Number string `json:"number"`
	Label  string `json:"label,omitempty"`
}

var webhookPathHints = []string{
	"/hooks/",    // Rocket.Chat, Mattermost, generic incoming webhooks
	"/services/", // Slack
}

// ClassifyURL decides which delivery channel an endpoint belongs to by its
// URL shape alone. Chat-platform incoming-webhook paths win over everything;
// URLs with an "sms" path segment are treated as SMS gateways. Anything
// unrecognized is a webhook: that is the more generic delivery mode, and a
// misclassified SMS gateway fails loudly on the first dispatch instead of
// silently swallowing recipients.
func ClassifyURL(rawURL string) Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KindWebhook
	}

	path := strings.ToLower(u.Path)
	for _, hint := range webhookPathHints {
		if strings.Contains(path, hint) {
			return KindWebhook
		}
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == "sms" || strings.HasPrefix(seg, "sms.") {
			return KindSMS
		}
	}

	return KindWebhook
}
