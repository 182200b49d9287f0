// Package completion delivers assembled prompts to a text-generation endpoint
// and always comes back with a string to show the visitor.
package completion

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/rfid-assistant/internal/observability/metrics"
	"github.com/wolfman30/rfid-assistant/internal/prompt"
	"github.com/wolfman30/rfid-assistant/pkg/logging"
)

// Fallback sentences shown when no model text is available.
const (
	FallbackClarification  = "I'm unable to generate a specific response at the moment. Could you please clarify your question?"
	FallbackServiceTrouble = "I'm having trouble connecting to the service. Please try again later."
	FallbackTechnicalIssue = "I'm currently unable to process your request due to a technical issue. Please try again later."
)

// Defaults for the retry loop.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultTimeout    = 30 * time.Second
)

// Transport performs a single generation call. It returns ErrEmptyResult when
// the endpoint answered without usable text and a *StatusError for non-success
// statuses; any other error counts as a transport failure.
type Transport interface {
	Name() string
	Generate(ctx context.Context, payload prompt.Payload) (string, error)
}

// Outcome is the terminal state of one Send.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeEmpty          Outcome = "empty"
	OutcomeServiceTrouble Outcome = "service_trouble"
	OutcomeTechnicalIssue Outcome = "technical_issue"
)

// Result describes how a Send ended. Text is what the visitor sees.
type Result struct {
	Text     string
	Outcome  Outcome
	Attempts int
	// LastErr is the failure that ended the call, nil on success.
	LastErr error
}

// Sleeper waits d between attempts, returning early with ctx's error.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the wall-clock Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client wraps a Transport with bounded retry and the fallback policy.
type Client struct {
	transport  Transport
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	sleep      Sleeper
	logger     *logging.Logger
	metrics    *metrics.CompletionMetrics
	tracer     trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithMaxRetries sets the total number of attempts. Values below 1 become 1.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.maxRetries = n
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithTimeout bounds each attempt. Zero disables the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.CompletionMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client using the default retry settings unless overridden.
func NewClient(transport Transport, opts ...Option) *Client {
	if transport == nil {
		panic("completion: transport cannot be nil")
	}
	c := &Client{
		transport:  transport,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		timeout:    DefaultTimeout,
		sleep:      SleepContext,
		logger:     logging.Default(),
		tracer:     otel.Tracer("rfid.internal.completion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send returns the model reply or one of the fallback sentences. It never fails.
func (c *Client) Send(ctx context.Context, payload prompt.Payload) string {
	return c.Do(ctx, payload).Text
}

// Do runs the attempt loop and reports how it ended.
func (c *Client) Do(ctx context.Context, payload prompt.Payload) Result {
	provider := c.transport.Name()
	ctx, span := c.tracer.Start(ctx, "completion.send",
		trace.WithAttributes(
			attribute.String("completion.provider", provider),
			attribute.Int("completion.entries", len(payload.Entries)),
		))
	defer span.End()

	var (
		lastKind failureKind
		lastErr  error
		attempt  int
	)
	for attempt = 1; attempt <= c.maxRetries; attempt++ {
		text, err := c.attempt(ctx, payload, attempt)
		kind := classify(err)

		switch kind {
		case failureNone:
			return c.finish(span, provider, Result{Text: text, Outcome: OutcomeSuccess, Attempts: attempt})
		case failureEmpty:
			c.logger.Warn("completion returned no usable candidate", "provider", provider, "attempt", attempt)
			return c.finish(span, provider, Result{Text: FallbackClarification, Outcome: OutcomeEmpty, Attempts: attempt, LastErr: err})
		}

		lastKind, lastErr = kind, err
		c.logger.Error("completion attempt failed",
			"provider", provider,
			"attempt", attempt,
			"max_attempts", c.maxRetries,
			"kind", kind.label(),
			"error", err,
		)
		if attempt == c.maxRetries {
			break
		}
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			c.logger.Warn("completion retry abandoned", "provider", provider, "attempt", attempt, "error", err)
			break
		}
	}
	result := Result{Text: FallbackTechnicalIssue, Outcome: OutcomeTechnicalIssue, Attempts: attempt, LastErr: lastErr}
	if lastKind == failureServer {
		result.Text = FallbackServiceTrouble
		result.Outcome = OutcomeServiceTrouble
	}
	return c.finish(span, provider, result)
}

func (c *Client) attempt(ctx context.Context, payload prompt.Payload, n int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "completion.attempt", trace.WithAttributes(attribute.Int("completion.attempt", n)))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.transport.Generate(ctx, payload)
	kind := classify(err)
	c.metrics.ObserveAttempt(c.transport.Name(), kind.label(), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("completion.result", kind.label()))
	return text, err
}

func (c *Client) finish(span trace.Span, provider string, result Result) Result {
	span.SetAttributes(
		attribute.String("completion.outcome", string(result.Outcome)),
		attribute.Int("completion.attempts", result.Attempts),
	)
	if result.Outcome != OutcomeSuccess {
		span.SetStatus(codes.Error, string(result.Outcome))
	}
	c.metrics.ObserveOutcome(provider, string(result.Outcome))
	c.logger.Info("completion finished",
		"provider", provider,
		"outcome", result.Outcome,
		"attempts", result.Attempts,
	)
	return result
}
