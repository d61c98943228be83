package ibmq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/credentials"
)

// Job states reported by the service.
const (
	JobQueued    = "Queued"
	JobRunning   = "Running"
	JobCompleted = "Completed"
	JobFailed    = "Failed"
	JobCancelled = "Cancelled"
)

// DefaultBaseURL returns the API base for a service channel.
func DefaultBaseURL(channel string) string {
	if channel == credentials.ChannelPlatform {
		return "https://quantum.cloud.ibm.com/api/v1"
	}
	return "https://us-east.quantum-computing.cloud.ibm.com/runtime"
}

// DeviceInfo is the device metadata the service reports.
type DeviceInfo struct {
	Name      string `json:"name"`
	Qubits    int    `json:"n_qubits"`
	MinShots  int    `json:"min_shots"`
	MaxShots  int    `json:"max_shots"`
	Simulator bool   `json:"simulator"`
}

// DeviceStatus is the live status of one device.
type DeviceStatus struct {
	State       bool   `json:"state"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	QueueLength int    `json:"length_queue"`
}

// Operational reports whether the device accepts jobs.
func (s DeviceStatus) Operational() bool { return s.State }

// Job is the state of one submitted job.
type Job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Terminal reports whether the job has stopped running.
func (j Job) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed || j.Status == JobCancelled
}

// Service is a REST client for the quantum execution service. One
// Service carries one session snapshot; it is safe for concurrent use.
type Service struct {
	base  string
	token string
	inst  string
	http  *http.Client
	log   zerolog.Logger
	poll  time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBaseURL overrides the channel's default API base.
func WithBaseURL(base string) ServiceOption {
	return func(s *Service) { s.base = base }
}

// WithHTTPClient overrides the default 30s-timeout client.
func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) { s.http = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log.With().Str("component", "ibmq").Logger()
	}
}

// WithPollInterval sets the job poll interval. Default: 2 seconds.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *Service) { s.poll = d }
}

// NewService creates a client from an authenticated session. The API
// base follows the session's channel unless WithBaseURL overrides it.
func NewService(sess *credentials.Session, opts ...ServiceOption) (*Service, error) {
	if sess == nil || sess.Token == "" {
		return nil, ErrNoSession
	}

	s := &Service{
		base:  DefaultBaseURL(sess.Channel),
		token: sess.Token,
		inst:  sess.Instance,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   zerolog.Nop(),
		poll:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// errNotFound marks 404 responses inside the client; exported errors
// carry the resource kind.
var errNotFound = errors.New("ibmq: not found")

func (s *Service) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.decorate(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ibmq: GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ibmq: GET %s: decode: %w", path, err)
	}
	return nil
}

func (s *Service) decorate(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
}

// Devices lists the devices visible in the current session.
func (s *Service) Devices(ctx context.Context) ([]DeviceInfo, error) {
	var out struct {
		Devices []DeviceInfo `json:"devices"`
	}
	if err := s.get(ctx, "/backends", &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// Device returns the named device, or ErrDeviceNotFound when the
// current session cannot see it.
func (s *Service) Device(ctx context.Context, name string) (DeviceInfo, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}
	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

// DeviceStatus returns the live status of the named device.
func (s *Service) DeviceStatus(ctx context.Context, name string) (DeviceStatus, error) {
	var out DeviceStatus
	err := s.get(ctx, "/backends/"+name+"/status", &out)
	if errors.Is(err, errNotFound) {
		return DeviceStatus{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	if err != nil {
		return DeviceStatus{}, err
	}
	return out, nil
}

// LeastBusy probes every non-simulator device concurrently and returns
// the operational one with the shortest queue. Ties break to the
// lexicographically smallest name. Devices that fail the status probe
// are skipped.
func (s *Service) LeastBusy(ctx context.Context) (DeviceInfo, error) {
	devices, err := s.Devices(ctx)
	if err != nil {
		return DeviceInfo{}, err
	}

	var (
		mu    sync.Mutex
		best  DeviceInfo
		queue int
		found bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, d := range devices {
		if d.Simulator {
			continue
		}
		g.Go(func() error {
			status, err := s.DeviceStatus(gctx, d.Name)
			if err != nil {
				s.log.Debug().Err(err).Str("device", d.Name).Msg("status probe failed")
				return nil
			}
			if !status.Operational() {
				return nil
			}

			mu.Lock()
			if !found || status.QueueLength < queue ||
				(status.QueueLength == queue && d.Name < best.Name) {
				best, queue, found = d, status.QueueLength, true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DeviceInfo{}, err
	}
	if !found {
		return DeviceInfo{}, ErrNoDevices
	}

	s.log.Debug().Str("device", best.Name).Int("queue", queue).Msg("least busy device")
	return best, nil
}

type submitRequest struct {
	ProgramID string       `json:"program_id"`
	Backend   string       `json:"backend"`
	Instance  string       `json:"instance,omitempty"`
	Params    submitParams `json:"params"`
}

type submitParams struct {
	Circuits []string `json:"circuits"`
	Shots    int      `json:"shots"`
}

// Submit queues a sampler job for the named device and returns its id.
func (s *Service) Submit(ctx context.Context, device, qasm string, shots int) (string, error) {
	body, err := json.Marshal(submitRequest{
		ProgramID: "sampler",
		Backend:   device,
		Instance:  s.inst,
		Params:    submitParams{Circuits: []string{qasm}, Shots: shots},
	})
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	s.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ibmq: submit: status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ibmq: submit: decode: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("ibmq: submit: empty job id")
	}
	return out.ID, nil
}

// Job returns the current state of a submitted job.
func (s *Service) Job(ctx context.Context, id string) (Job, error) {
	var out Job
	if err := s.get(ctx, "/jobs/"+id, &out); err != nil {
		return Job{}, err
	}
	return out, nil
}

// Results returns the raw outcome counts of a completed job, in the
// service's wire label order.
func (s *Service) Results(ctx context.Context, id string) (backend.Counts, error) {
	var out struct {
		Counts backend.Counts `json:"counts"`
	}
	if err := s.get(ctx, "/jobs/"+id+"/results", &out); err != nil {
		return nil, err
	}
	return out.Counts, nil
}

// Run submits the QASM payload, polls the job until it reaches a
// terminal state, and returns its raw counts.
func (s *Service) Run(ctx context.Context, device, qasm string, shots int) (backend.Counts, error) {
	jobID, err := s.Submit(ctx, device, qasm, shots)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("job_id", jobID).
		Str("device", device).
		Int("shots", shots).
		Msg("submitted job")

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		job, err := s.Job(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case JobCompleted:
			return s.Results(ctx, jobID)
		case JobFailed, JobCancelled:
			return nil, fmt.Errorf("%w: %s: %s", ErrJobFailed, job.Status, job.Reason)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
