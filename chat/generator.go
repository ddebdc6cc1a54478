package chat

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ibreez3/ai-chat/chat"

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Completer produces completions for a conversation. *Generator is the
// production implementation.
type Completer interface {
	Generate(ctx context.Context, history History, n int) (*Completions, error)
}

type CompleterFunc func(ctx context.Context, history History, n int) (*Completions, error)

func (f CompleterFunc) Generate(ctx context.Context, history History, n int) (*Completions, error) {
	return f(ctx, history, n)
}

// Generator wraps a Backend with classification and exponential backoff.
// The With* builders are meant for the composition root; once built a
// Generator is safe for concurrent use.
type Generator struct {
	backend    Backend
	opts       Options
	classifier *Classifier
	log        logrus.FieldLogger
	sleep      SleepFunc
	tracer     trace.Tracer
}

func NewGenerator(backend Backend, opts Options) (*Generator, error) {
	if backend == nil {
		return nil, &ConfigurationError{Field: "backend", Reason: "must not be nil"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return &Generator{
		backend:    backend,
		opts:       opts,
		classifier: NewClassifier(opts.TransientStatus),
		log:        discard,
		sleep:      sleepContext,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

func (g *Generator) WithLogger(log logrus.FieldLogger) *Generator {
	g.log = log.WithField("component", "generator")
	return g
}

func (g *Generator) WithSleep(sleep SleepFunc) *Generator {
	g.sleep = sleep
	return g
}

func (g *Generator) WithTracer(t trace.Tracer) *Generator {
	g.tracer = t
	return g
}

func (g *Generator) Options() Options { return g.opts }

// Generate requests n candidate completions for history. Transient
// failures are retried up to MaxRetries times; the result is only returned
// once a call has fully succeeded.
func (g *Generator) Generate(ctx context.Context, history History, n int) (*Completions, error) {
	if n < 1 {
		return nil, &ConfigurationError{Field: "n", Reason: "must be at least 1"}
	}
	if err := history.Validate(); err != nil {
		return nil, err
	}
	req := Request{
		Model:       g.opts.Model,
		Messages:    history.Clone(),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		N:           n,
	}

	ctx, span := g.tracer.Start(ctx, "chat.generate", trace.WithAttributes(
		attribute.String("chat.model", req.Model),
		attribute.Int("chat.n", n),
		attribute.Int("chat.history_len", len(history)),
	))
	defer span.End()

	log := g.log.WithFields(logrus.Fields{"model": req.Model, "n": n})
	for attempt := 0; ; attempt++ {
		span.SetAttributes(attribute.Int("chat.attempt", attempt))
		log.WithField("attempt", attempt).Debug("requesting completions")

		resp, err := g.create(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				err := &FatalRequestError{Err: ErrNoCompletions}
				g.fail(span, err)
				return nil, err
			}
			log.WithField("choices", len(resp.Choices)).Debug("received completions")
			return NewCompletions(resp.Choices...), nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			err := fmt.Errorf("chat: generation aborted on attempt %d: %w", attempt+1, ctxErr)
			g.fail(span, err)
			return nil, err
		}

		if g.classifier.Classify(err) == Fatal {
			ferr := &FatalRequestError{StatusCode: statusOf(err), Err: err}
			log.WithError(err).Error("fatal error from completion backend")
			g.fail(span, ferr)
			return nil, ferr
		}

		terr := &TransientRequestError{Attempt: attempt, StatusCode: statusOf(err), Err: err}
		if attempt >= g.opts.MaxRetries {
			xerr := &RetriesExhaustedError{Attempts: attempt + 1, Last: terr}
			log.WithError(err).Error("maximum retries reached, aborting")
			g.fail(span, xerr)
			return nil, xerr
		}

		delay := g.opts.Backoff(attempt)
		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("transient error from completion backend, retrying")
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("chat.attempt", attempt),
			attribute.Int("chat.status", terr.StatusCode),
			attribute.String("chat.delay", delay.String()),
		))
		if err := g.sleep(ctx, delay); err != nil {
			aerr := fmt.Errorf("chat: retry wait cancelled after attempt %d: %w", attempt+1, err)
			g.fail(span, aerr)
			return nil, aerr
		}
	}
}

func (g *Generator) create(ctx context.Context, req Request) (Response, error) {
	if g.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
		defer cancel()
	}
	return g.backend.Create(ctx, req)
}

func (g *Generator) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
