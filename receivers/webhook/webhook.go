// Package webhook delivers rendered alert messages to chat-platform
// incoming webhooks (Rocket.Chat, Slack and the like).
package webhook

import (
	"context"
	"net/http"

	"github.com/go-kit/log"
	jsoniter "github.com/json-iterator/go"

	"github.com/imanbakhtiari/alerting/receivers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// message is the JSON body understood by Rocket.Chat- and Slack-style
// incoming webhooks.
type message struct {
	Text string `json:"text"`
}

// Notifier sends one message per provider. Webhook channels have their own
// fixed audience, so there is no per-recipient fan-out.
type Notifier struct {
	provider receivers.Provider
	client   *http.Client
	logger   log.Logger
}

func New(provider receivers.Provider, client *http.Client, logger log.Logger) *Notifier {
	return &Notifier{
		provider: provider,
		client:   client,
		logger:   log.With(logger, "channel", receivers.KindWebhook),
	}
}

// Notify posts the rendered message and reports the attempt as an Outcome.
// Like the SMS notifier it never returns an error; failures stay local to
// this one attempt.
func (n *Notifier) Notify(ctx context.Context, text string) receivers.Outcome {
	out := receivers.Outcome{
		Kind:     receivers.KindWebhook,
		Provider: receivers.MaskURL(n.provider.URL),
	}

	body, err := json.Marshal(message{Text: text})
	if err != nil {
		out.Error = err.Error()
		return out
	}

	code, err := receivers.SendHTTPRequest(ctx, n.client, receivers.HTTPCfg{
		URL:         n.provider.URL,
		Body:        body,
		ContentType: "application/json",
		Headers:     n.provider.Headers,
	}, n.logger)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.StatusCode = code
	return out
}
