package ibmq

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/qrand/credentials"
)

// VerifyResult reports which channel accepted an API key.
type VerifyResult struct {
	// Channel is the account channel the key authenticated against.
	Channel string

	// Devices lists the devices visible to the key on that channel.
	Devices []DeviceInfo
}

type verifier struct {
	tokenURL string
	bases    map[string]string
	instance string
	client   *http.Client
	store    *credentials.AccountStore
	log      zerolog.Logger
}

// VerifyOption adjusts token verification.
type VerifyOption func(*verifier)

// WithVerifyTokenURL overrides the IAM token endpoint.
func WithVerifyTokenURL(url string) VerifyOption {
	return func(v *verifier) { v.tokenURL = url }
}

// WithVerifyBaseURL overrides the runtime base URL probed for channel.
func WithVerifyBaseURL(channel, base string) VerifyOption {
	return func(v *verifier) { v.bases[channel] = base }
}

// WithVerifyInstance sets the service instance CRN sent with requests.
func WithVerifyInstance(instance string) VerifyOption {
	return func(v *verifier) { v.instance = instance }
}

// WithVerifyHTTPClient overrides the HTTP client used for all probes.
func WithVerifyHTTPClient(c *http.Client) VerifyOption {
	return func(v *verifier) { v.client = c }
}

// WithVerifyStore saves the verified account to store on success.
func WithVerifyStore(store *credentials.AccountStore) VerifyOption {
	return func(v *verifier) { v.store = store }
}

// WithVerifyLogger sets the logger for verification progress.
func WithVerifyLogger(log zerolog.Logger) VerifyOption {
	return func(v *verifier) { v.log = log }
}

// VerifyToken checks an API key against each known channel in order and
// returns the first channel whose runtime accepts the key and reports
// at least one device. With a store configured, the working channel is
// saved as the account named after it.
//
// Contract:
//   - Concurrency: safe; each call builds its own provider and service.
//   - Context: aborts between and during channel probes.
//   - Errors: credentials.ErrNoCredentials for an empty key,
//     ErrVerifyFailed wrapping the last probe error when no channel
//     accepts the key.
func VerifyToken(ctx context.Context, apiKey string, opts ...VerifyOption) (*VerifyResult, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: empty api key", credentials.ErrNoCredentials)
	}

	v := &verifier{bases: make(map[string]string)}
	for _, opt := range opts {
		opt(v)
	}

	var lastErr error
	for _, channel := range []string{credentials.ChannelCloud, credentials.ChannelPlatform} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		devices, err := v.probe(ctx, apiKey, channel)
		if err != nil {
			v.log.Debug().Err(err).Str("channel", channel).Msg("channel probe failed")
			lastErr = err
			continue
		}
		if len(devices) == 0 {
			lastErr = fmt.Errorf("ibmq: channel %s lists no devices", channel)
			continue
		}

		if v.store != nil {
			acct := credentials.Account{Channel: channel, Instance: v.instance, APIKey: apiKey}
			if err := v.store.Save(channel, acct); err != nil {
				v.log.Warn().Err(err).Str("channel", channel).Msg("could not save verified account")
			}
		}
		v.log.Info().
			Str("channel", channel).
			Int("devices", len(devices)).
			Msg("token verified")
		return &VerifyResult{Channel: channel, Devices: devices}, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrVerifyFailed, lastErr)
}

func (v *verifier) probe(ctx context.Context, apiKey, channel string) ([]DeviceInfo, error) {
	cfg := credentials.IAMConfig{
		APIKey:   apiKey,
		TokenURL: v.tokenURL,
		Channel:  channel,
		Instance: v.instance,
		Logger:   v.log,
	}
	if v.client != nil {
		cfg.HTTPClient = v.client
	}

	sess, err := credentials.NewAPIKeyProvider(cfg).OpenSession(ctx)
	if err != nil {
		return nil, err
	}

	svcOpts := []ServiceOption{WithLogger(v.log)}
	if base, ok := v.bases[channel]; ok {
		svcOpts = append(svcOpts, WithBaseURL(base))
	}
	if v.client != nil {
		svcOpts = append(svcOpts, WithHTTPClient(v.client))
	}
	svc, err := NewService(sess, svcOpts...)
	if err != nil {
		return nil, err
	}
	return svc.Devices(ctx)
}
