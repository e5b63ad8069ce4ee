// Package notify contains the dispatch coordinator: it turns one inbound
// alert batch into a set of concurrent delivery attempts and waits for all
// of them.
package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/imanbakhtiari/alerting/models"
	"github.com/imanbakhtiari/alerting/receivers"
	"github.com/imanbakhtiari/alerting/receivers/sms"
	"github.com/imanbakhtiari/alerting/receivers/webhook"
	"github.com/imanbakhtiari/alerting/store"
	"github.com/imanbakhtiari/alerting/templates"
)

const (
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxWorkers caps concurrent in-flight deliveries per request.
	DefaultMaxWorkers = 10
)

// SnapshotSource yields the configuration snapshot a dispatch runs against.
// Exactly one snapshot is taken per request; configuration edits made while
// a dispatch is in flight are not observed by it.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// Config tunes a Dispatcher. Zero values fall back to the defaults above.
type Config struct {
	// Timeout is the maximum wait per delivery attempt.
	Timeout time.Duration
	// MaxWorkers caps the number of concurrent delivery attempts.
	MaxWorkers int
	// Sender is the optional SMS originator passed to gateways.
	Sender string
}

// Dispatcher fans alert batches out to providers and recipients.
type Dispatcher struct {
	source  SnapshotSource
	client  *http.Client
	clock   clock.Clock
	logger  log.Logger
	metrics *Metrics

	timeout    time.Duration
	maxWorkers int
	sender     string
}

func NewDispatcher(source SnapshotSource, cfg Config, client *http.Client, clk clock.Clock, metrics *Metrics, logger log.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if client == nil {
		client = receivers.NewClient()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Dispatcher{
		source:     source,
		client:     client,
		clock:      clk,
		logger:     logger,
		metrics:    metrics,
		timeout:    cfg.Timeout,
		maxWorkers: cfg.MaxWorkers,
		sender:     cfg.Sender,
	}
}

// Result summarizes one dispatch. It reports acceptance, not delivery
// receipts: individual failures live in Outcomes and the log only.
type Result struct {
	RecipientsNotified int                 `json:"recipients_notified"`
	Outcomes           []receivers.Outcome `json:"outcomes"`
}

// Dispatch renders every alert in the batch and delivers each rendered
// message to every SMS provider × every team recipient plus every webhook
// provider once. All attempts for the request run concurrently, bounded by
// MaxWorkers, and Dispatch returns only after the last attempt finished or
// timed out. A failing attempt never aborts its siblings.
//
// The only errors returned are request-level: an unknown team aborts before
// any delivery is attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, team string, alerts []models.Alert) (*Result, error) {
	snap := d.source.Snapshot()

	recipients, err := snap.ResolveTeam(team)
	if err != nil {
		return nil, err
	}
	recipients = dedupe(recipients)

	tmpl := snap.Template
	if tmpl == "" {
		tmpl = templates.DefaultTemplate
	}

	var smsNotifiers []*sms.Notifier
	for _, p := range snap.SMSProviders() {
		smsNotifiers = append(smsNotifiers, sms.New(p, d.sender, d.client, d.logger))
	}
	var hookNotifiers []*webhook.Notifier
	for _, p := range snap.WebhookProviders() {
		hookNotifiers = append(hookNotifiers, webhook.New(p, d.client, d.logger))
	}

	// One job per delivery attempt: for each rendered message, SMS fans out
	// per (provider, recipient) pair; webhooks go out once per provider
	// regardless of the team.
	type job func(context.Context) receivers.Outcome

	var jobs []job
	for _, alert := range alerts {
		message := templates.Render(tmpl, alert)
		for _, n := range smsNotifiers {
			for _, r := range recipients {
				n, r := n, r
				jobs = append(jobs, func(ctx context.Context) receivers.Outcome {
					return n.Notify(ctx, r, message)
				})
			}
		}
		for _, n := range hookNotifiers {
			n := n
			jobs = append(jobs, func(ctx context.Context) receivers.Outcome {
				return n.Notify(ctx, message)
			})
		}
	}

	result := &Result{RecipientsNotified: len(recipients)}
	if len(jobs) == 0 {
		return result, nil
	}

	numWorkers := d.maxWorkers
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	workCh := make(chan job, len(jobs))
	for _, j := range jobs {
		workCh <- j
	}
	close(workCh)

	resultCh := make(chan receivers.Outcome, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			for next := range workCh {
				attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
				started := d.clock.Now()
				out := next(attemptCtx)
				cancel()
				out.Timestamp = d.clock.Now()
				d.observe(out, d.clock.Since(started))
				resultCh <- out
			}
			return nil
		})
	}
	_ = g.Wait()
	close(resultCh)

	for out := range resultCh {
		result.Outcomes = append(result.Outcomes, out)
	}
	return result, nil
}

func (d *Dispatcher) observe(out receivers.Outcome, took time.Duration) {
	l := log.With(d.logger,
		"channel", out.Kind,
		"provider", out.Provider,
		"target", out.Target,
		"statusCode", out.StatusCode,
		"took", took,
	)
	if out.Succeeded() {
		level.Info(l).Log("msg", "delivery succeeded")
	} else {
		level.Error(l).Log("msg", "delivery failed", "error", out.Error)
	}

	if d.metrics != nil {
		status := outcomeOK
		if !out.Succeeded() {
			status = outcomeFailed
		}
		d.metrics.DeliveryAttemptsTotal.WithLabelValues(string(out.Kind), status).Inc()
		d.metrics.DeliveryDuration.WithLabelValues(string(out.Kind)).Observe(took.Seconds())
	}
}

// dedupe drops repeated numbers while keeping first-seen order, so one
// recipient never gets the same message twice from the same provider.
func dedupe(recipients []receivers.Recipient) []receivers.Recipient {
	seen := make(map[string]struct{}, len(recipients))
	out := recipients[:0:0]
	for _, r := range recipients {
		if _, ok := seen[r.Number]; ok {
			continue
		}
		seen[r.Number] = struct{}{}
		out = append(out, r)
	}
	return out
}
