// Package sms delivers rendered alert messages through SMS gateways that
// accept form-encoded receptor/message requests (Kavenegar and compatible
// APIs).
package sms

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-kit/log"

	"github.com/imanbakhtiari/alerting/receivers"
)

// Notifier sends one SMS per (provider, recipient) pair.
type Notifier struct {
	provider receivers.Provider
	sender   string
	client   *http.Client
	logger   log.Logger
}

// New creates an SMS notifier for one gateway. sender is the optional
// originator line passed to the gateway; leave empty to use the gateway's
// default.
func New(provider receivers.Provider, sender string, client *http.Client, logger log.Logger) *Notifier {
	return &Notifier{
		provider: provider,
		sender:   sender,
		client:   client,
		logger:   log.With(logger, "channel", receivers.KindSMS),
	}
}

// Notify sends message to one recipient and reports the attempt as an
// Outcome. It never returns an error: transport failures and bad gateway
// responses are recorded in the outcome so a failed attempt cannot abort
// sibling deliveries.
func (n *Notifier) Notify(ctx context.Context, recipient receivers.Recipient, message string) receivers.Outcome {
	out := receivers.Outcome{
		Kind:     receivers.KindSMS,
		Provider: receivers.MaskURL(n.provider.URL),
		Target:   receivers.MaskNumber(recipient.Number),
	}

	params := url.Values{}
	params.Set("receptor", recipient.Number)
	if n.sender != "" {
		params.Set("sender", n.sender)
	}
	params.Set("message", message)

	// Gateways of this family expect form data, not JSON.
	code, err := receivers.SendHTTPRequest(ctx, n.client, receivers.HTTPCfg{
		URL:         n.provider.URL,
		Body:        []byte(params.Encode()),
		ContentType: "application/x-www-form-urlencoded",
		Headers:     n.provider.Headers,
	}, n.logger)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.StatusCode = code
	return out
}
