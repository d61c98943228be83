package qrand

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/credentials"
	"github.com/jonwraymond/qrand/ibmq"
)

// DefaultMaxCircuitWidth caps the register width of one sampling
// circuit. Wider requests run as sequential circuits of this width.
const DefaultMaxCircuitWidth = 64

// scopeName is the instrumentation scope of the client's telemetry.
const scopeName = "github.com/jonwraymond/qrand"

// connectFunc dials the remote service and wraps a device as an
// executor. Swapped out in tests.
type connectFunc func(ctx context.Context, sess *credentials.Session, device string) (backend.Backend, string, error)

// Client hands out random values backed by quantum measurement. It
// resolves its executor once (remote service when credentials allow,
// local simulator otherwise) and reuses it for every generation call;
// SelectBackend replaces the executor explicitly.
//
// The zero value is not usable; construct with New or FromEnv.
// Methods are safe for concurrent use. Re-selection concurrent with
// generation keeps last-writer-wins semantics: in-flight calls finish
// on the executor they started with.
type Client struct {
	log      zerolog.Logger
	creds    credentials.Provider
	device   string
	svcOpts  []ibmq.ServiceOption
	maxWidth int
	debias   bool

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	mx             *metrics

	connect connectFunc
	group   singleflight.Group

	mu    sync.Mutex
	res   *Resolution
	cache []Bit
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for diagnostics (connection status,
// fallback warnings). Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log.With().Str("component", "qrand").Logger()
	}
}

// WithCredentials sets the credential provider consulted during
// resolution. Without one every resolution falls back to the local
// simulator.
func WithCredentials(p credentials.Provider) Option {
	return func(c *Client) { c.creds = p }
}

// WithDevice names the remote device to use instead of the least-busy
// scan. An unknown name makes resolution fall back with
// ErrUnknownBackend as the recorded reason.
func WithDevice(name string) Option {
	return func(c *Client) { c.device = name }
}

// WithBackend injects a pre-resolved executor under the given display
// name, skipping remote resolution entirely.
func WithBackend(name string, b backend.Backend) Option {
	return func(c *Client) {
		c.res = &Resolution{Backend: b, Name: name, Outcome: Connected}
	}
}

// WithMaxCircuitWidth caps the qubit register width of one sampling
// circuit. Values below 1 keep the default.
func WithMaxCircuitWidth(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxWidth = n
		}
	}
}

// WithDebiasing routes every generation call through the Von Neumann
// extractor. Removes constant per-bit bias at the cost of several raw
// bits per output bit; not a cryptographic guarantee.
func WithDebiasing() Option {
	return func(c *Client) { c.debias = true }
}

// WithServiceOptions forwards options to the remote service client
// built during resolution. Mainly base URL and HTTP client overrides.
func WithServiceOptions(opts ...ibmq.ServiceOption) Option {
	return func(c *Client) { c.svcOpts = append(c.svcOpts, opts...) }
}

// WithMeterProvider sets the provider for the client's instruments.
// Defaults to the otel global, a no-op unless the application installs
// one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) { c.meterProvider = mp }
}

// WithTracerProvider sets the provider for the client's spans.
// Defaults to the otel global.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProvider = tp }
}

// New builds a Client. Construction never fails; configuration
// problems surface on first use as typed errors or fallback
// resolutions.
func New(opts ...Option) *Client {
	c := &Client{
		log:            zerolog.Nop(),
		maxWidth:       DefaultMaxCircuitWidth,
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.connect = c.connectRemote
	c.tracer = c.tracerProvider.Tracer(scopeName)

	mx, err := newMetrics(c.meterProvider.Meter(scopeName))
	if err != nil {
		otel.Handle(err)
	}
	c.mx = mx
	return c
}

// BackendName returns the display name of the resolved executor, or
// "" before the first resolution.
func (c *Client) BackendName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.res == nil {
		return ""
	}
	return c.res.Name
}

// executor resolves on first use and returns the selected backend with
// its display name.
func (c *Client) executor(ctx context.Context) (backend.Backend, string, error) {
	res, err := c.Resolve(ctx)
	if err != nil {
		return nil, "", err
	}
	return res.Backend, res.Name, nil
}
