package qrand

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/credentials"
	"github.com/jonwraymond/qrand/ibmq"
	"github.com/jonwraymond/qrand/simulator"
)

// Outcome says how a resolution ended.
type Outcome int

const (
	// Connected means the remote backend answered and was selected.
	Connected Outcome = iota

	// FellBack means remote selection failed and the local simulator
	// serves instead. Resolution.Reason carries the cause.
	FellBack
)

// String returns the outcome in metric-attribute form.
func (o Outcome) String() string {
	switch o {
	case Connected:
		return "connected"
	case FellBack:
		return "fell_back"
	default:
		return "unknown"
	}
}

// Resolution is the result of selecting an executor.
type Resolution struct {
	// Backend is the selected executor. Never nil.
	Backend backend.Backend

	// Name is the display name of the executor.
	Name string

	// Outcome says whether the remote connection held or selection
	// fell back.
	Outcome Outcome

	// Reason is the failure that caused a fallback; nil on Connected.
	Reason error
}

// Resolve selects the executor, or returns the one already selected.
// Selection prefers the remote service (credentials permitting; named
// device or least-busy scan) and falls back to the local simulator on
// any failure. Failures become FellBack outcomes, never errors; the
// only error Resolve returns is the context's.
//
// Concurrent first resolutions coalesce into one attempt.
func (c *Client) Resolve(ctx context.Context) (Resolution, error) {
	return c.resolve(ctx, "", false)
}

// SelectBackend re-runs selection targeting the named device,
// replacing the current executor even when one is already resolved. An
// empty name re-runs the automatic scan. The bit cache is dropped when
// the executor changes.
func (c *Client) SelectBackend(ctx context.Context, name string) (Resolution, error) {
	return c.resolve(ctx, name, true)
}

func (c *Client) resolve(ctx context.Context, override string, force bool) (Resolution, error) {
	if !force {
		if res := c.resolved(); res != nil {
			return *res, nil
		}
	}

	v, err, _ := c.group.Do("resolve\x00"+override, func() (any, error) {
		if !force {
			if res := c.resolved(); res != nil {
				return res, nil
			}
		}

		res, err := c.doResolve(ctx, override)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.res == nil || c.res.Name != res.Name {
			c.cache = nil
		}
		c.res = res
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return Resolution{}, err
	}
	return *(v.(*Resolution)), nil
}

func (c *Client) resolved() *Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res
}

func (c *Client) doResolve(ctx context.Context, override string) (_ *Resolution, err error) {
	ctx, span := c.tracer.Start(ctx, "qrand.resolve",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer func() { endSpan(span, err) }()

	b, name, remoteErr := c.resolveRemote(ctx, override)
	if remoteErr == nil {
		span.SetAttributes(
			attribute.String("backend", name),
			attribute.String("outcome", Connected.String()),
		)
		c.mx.recordResolution(ctx, Connected)
		c.log.Info().Str("backend", name).Msg("connected to remote backend")
		return &Resolution{Backend: b, Name: name, Outcome: Connected}, nil
	}
	// a canceled resolution is the caller's abort, not a fallback case
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	span.SetAttributes(
		attribute.String("backend", simulator.BackendName),
		attribute.String("outcome", FellBack.String()),
	)
	c.mx.recordResolution(ctx, FellBack)
	c.log.Warn().Err(remoteErr).Msg("falling back to local simulator")

	return &Resolution{
		Backend: simulator.New(simulator.WithLogger(c.log)),
		Name:    simulator.BackendName,
		Outcome: FellBack,
		Reason:  remoteErr,
	}, nil
}

// resolveRemote walks the remote chain: provider, session, service,
// device. Any failure aborts the chain; the caller decides what a
// failure means.
func (c *Client) resolveRemote(ctx context.Context, override string) (backend.Backend, string, error) {
	if c.creds == nil {
		return nil, "", fmt.Errorf("%w: no credential provider", backend.ErrUnavailable)
	}
	if !c.creds.HasSession(ctx) {
		return nil, "", fmt.Errorf("%w: no stored session", backend.ErrUnavailable)
	}

	sess, err := c.creds.OpenSession(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("open session: %w", err)
	}

	device := override
	if device == "" {
		device = c.device
	}

	b, name, err := c.connect(ctx, sess, device)
	if err != nil {
		if device != "" && errors.Is(err, ibmq.ErrDeviceNotFound) {
			err = fmt.Errorf("%w: %q", ErrUnknownBackend, device)
		}
		return nil, "", err
	}
	return b, name, nil
}

// connectRemote is the production connectFunc: a service client over
// the session, then the named device or the least-busy operational
// one.
func (c *Client) connectRemote(ctx context.Context, sess *credentials.Session, device string) (backend.Backend, string, error) {
	opts := append([]ibmq.ServiceOption{ibmq.WithLogger(c.log)}, c.svcOpts...)
	svc, err := ibmq.NewService(sess, opts...)
	if err != nil {
		return nil, "", err
	}

	var info ibmq.DeviceInfo
	if device != "" {
		info, err = svc.Device(ctx, device)
	} else {
		info, err = svc.LeastBusy(ctx)
	}
	if err != nil {
		return nil, "", err
	}

	return ibmq.NewRemoteBackend(svc, info, c.log), info.Name, nil
}
