package render

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/isorender/internal/errors"
	"github.com/conneroisu/isorender/internal/logging"
	"github.com/conneroisu/isorender/internal/retry"
)

const tracerName = "github.com/conneroisu/isorender/internal/render"

// ErrRoundLimit is reported in Result.Err when loaders were still pending
// after the last allowed round.
var ErrRoundLimit = errors.NewRenderError(errors.ErrCodeRoundLimit, "render round limit reached", nil)

// Options configures a Renderer.
type Options struct {
	MaxRounds   int
	Timeout     time.Duration
	Concurrency int
	Retry       retry.Options
	Observer    Observer
}

// Observer receives one call per finished render.
type Observer interface {
	ObserveRender(rounds int, duration time.Duration, status int)
}

// Result is the output of a render.
type Result struct {
	HTML     []byte
	State    map[string]any
	Rounds   int
	Status   int
	Duration time.Duration
	// Incomplete is set when the round limit cut resolution short; Err is
	// then ErrRoundLimit.
	Incomplete bool
	Err        error
	// Failed lists loader keys whose fetch returned an error.
	Failed []string
}

// Renderer renders templ components in rounds until their data settles.
type Renderer struct {
	opts   Options
	logger logging.Logger
	tracer trace.Tracer
}

// New creates a renderer. Zero options fall back to 5 rounds and 8
// concurrent loaders.
func New(opts Options, logger logging.Logger) *Renderer {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 5
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Renderer{
		opts:   opts,
		logger: logger.WithComponent("render"),
		tracer: otel.Tracer(tracerName),
	}
}

// Render runs component until no new loaders are queued or the round limit
// is reached. A non-nil error means the page could not be produced; its
// HTTP status is errors.HTTPStatus(err).
func (r *Renderer) Render(ctx context.Context, component templ.Component) (*Result, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "render")
	defer span.End()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	s := newSession()
	ctx = context.WithValue(ctx, sessionKey{}, s)

	result, err := r.rounds(ctx, s, component)
	result.Duration = time.Since(start)

	status := errors.HTTPStatus(err)
	span.SetAttributes(
		attribute.Int("render.rounds", result.Rounds),
		attribute.Bool("render.incomplete", result.Incomplete),
		attribute.Int("http.status_code", status),
	)
	if err != nil && status >= http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveRender(result.Rounds, result.Duration, status)
	}

	if err != nil {
		return nil, err
	}
	result.Status = status
	return result, nil
}

func (r *Renderer) rounds(ctx context.Context, s *session, component templ.Component) (*Result, error) {
	result := &Result{}
	var buf bytes.Buffer

	for round := 1; ; round++ {
		result.Rounds = round
		buf.Reset()

		if err := renderRound(ctx, component, &buf); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !stderrors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			return result, fmt.Errorf("round %d: %w", round, err)
		}

		keys, pending := s.takePending()
		if len(keys) == 0 {
			break
		}

		if round >= r.opts.MaxRounds {
			result.Incomplete = true
			result.Err = ErrRoundLimit
			r.logger.Warn(ctx, ErrRoundLimit, "Rendering stopped with loaders pending",
				"rounds", round,
				"pending", keys,
			)
			break
		}

		r.logger.Debug(ctx, "Resolving loaders", "round", round, "keys", keys)
		r.resolve(ctx, s, keys, pending)

		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("round %d: %w", round, err)
		}
	}

	result.HTML = append([]byte(nil), buf.Bytes()...)
	result.State = s.state()
	result.Failed = s.failedKeys()
	return result, nil
}

// renderRound renders component once, turning a panic into a render error.
func renderRound(ctx context.Context, component templ.Component, buf *bytes.Buffer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewRenderError(errors.ErrCodeRenderFailed,
				fmt.Sprintf("component panicked: %v", rec), nil)
		}
	}()
	return component.Render(ctx, buf)
}

// resolve runs the queued loaders concurrently and records their outcome.
// Loader errors are stored, not returned: the component decides how to
// render a failed load on the next round.
func (r *Renderer) resolve(ctx context.Context, s *session, keys []string, pending map[string]Fetch) {
	p := pool.New().WithMaxGoroutines(r.opts.Concurrency)

	for _, key := range keys {
		key, fetch := key, pending[key]
		p.Go(func() {
			value, err := r.fetch(ctx, key, fetch)
			if err != nil {
				r.logger.Warn(ctx, err, "Loader failed", "key", key)
			}
			s.resolve(key, outcome{value: value, err: err})
		})
	}

	p.Wait()
}

func (r *Renderer) fetch(ctx context.Context, key string, fetch Fetch) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewRenderError(errors.ErrCodeLoaderFailed,
				fmt.Sprintf("loader %q panicked: %v", key, rec), nil)
		}
	}()

	opts := r.opts.Retry
	userNotify := opts.OnRetry
	opts.OnRetry = func(err error, next time.Duration) {
		r.logger.Debug(ctx, "Retrying loader", "key", key, "error", err.Error(), "next", next)
		if userNotify != nil {
			userNotify(err, next)
		}
	}

	return retry.Do(ctx, opts, func(ctx context.Context) (any, error) {
		value, err := fetch(ctx)
		if err != nil && isFinal(err) {
			return value, retry.Permanent(err)
		}
		return value, err
	})
}

// isFinal reports whether retrying err cannot help: the loader decided on a
// non-5xx status, or the render context is already done.
func isFinal(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.HTTPStatus(err) < http.StatusInternalServerError
}

// RenderString is a convenience for tests and tooling: it renders component
// and returns the HTML as a string.
func (r *Renderer) RenderString(ctx context.Context, component templ.Component) (string, error) {
	result, err := r.Render(ctx, component)
	if err != nil {
		return "", err
	}
	return string(result.HTML), nil
}
