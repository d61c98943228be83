package ibmq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/qrand/backend"
	"github.com/jonwraymond/qrand/credentials"
)

// fakeRuntime is a scripted stand-in for the execution service. Job
// status responses are consumed from jobStates one poll at a time; the
// last state repeats once the script runs out.
type fakeRuntime struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	devices    []DeviceInfo
	status     map[string]DeviceStatus
	jobStates  []string
	jobReason  string
	counts     backend.Counts
	lastAuth   string
	lastSubmit submitRequest
	submits    int
	polls      int
	onPoll     func()
}

func newFakeRuntime(t *testing.T) *fakeRuntime {
	t.Helper()
	f := &fakeRuntime{t: t, status: map[string]DeviceStatus{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /backends", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		devices := f.devices
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{"devices": devices})
	})
	mux.HandleFunc("GET /backends/{name}/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		st, ok := f.status[r.PathValue("name")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.writeJSON(w, st)
	})
	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode submit body: %v", err)
		}
		f.mu.Lock()
		f.lastSubmit = req
		f.submits++
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		f.writeJSON(w, map[string]string{"id": "job-1"})
	})
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := JobCompleted
		if len(f.jobStates) > 0 {
			status = f.jobStates[0]
			if len(f.jobStates) > 1 {
				f.jobStates = f.jobStates[1:]
			}
		}
		f.polls++
		reason := f.jobReason
		hook := f.onPoll
		f.mu.Unlock()

		f.writeJSON(w, Job{ID: r.PathValue("id"), Status: status, Reason: reason})
		if hook != nil {
			hook()
		}
	})
	mux.HandleFunc("GET /jobs/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		counts := f.counts
		f.mu.Unlock()
		f.writeJSON(w, map[string]any{"counts": counts})
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRuntime) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode response: %v", err)
	}
}

// script mutates fixture state under the fake's lock; handlers read the
// same fields under it.
func (f *fakeRuntime) script(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakeRuntime) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

// service builds a client pointed at the fake with a fast poll loop.
func (f *fakeRuntime) service(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	sess := &credentials.Session{
		Token:    "tkn",
		Channel:  credentials.ChannelCloud,
		Instance: "crn:test",
	}
	opts = append([]ServiceOption{
		WithBaseURL(f.srv.URL),
		WithPollInterval(time.Millisecond),
	}, opts...)
	svc, err := NewService(sess, opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestNewServiceNoSession(t *testing.T) {
	if _, err := NewService(nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("NewService(nil) error = %v, want ErrNoSession", err)
	}
	if _, err := NewService(&credentials.Session{}); !errors.Is(err, ErrNoSession) {
		t.Errorf("NewService(empty) error = %v, want ErrNoSession", err)
	}
}

func TestServiceDevices(t *testing.T) {
	f := newFakeRuntime(t)
	f.script(func() {
		f.devices = []DeviceInfo{
			{Name: "ibm_kyoto", Qubits: 127, MinShots: 1, MaxShots: 100000},
			{Name: "ibm_osaka", Qubits: 127},
		}
	})
	svc := f.service(t)

	devices, err := svc.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 2 || devices[0].Name != "ibm_kyoto" {
		t.Errorf("Devices() = %+v, want the two scripted devices", devices)
	}
	if devices[0].Qubits != 127 || devices[0].MaxShots != 100000 {
		t.Errorf("device fields = %+v, want qubit and shot bounds decoded", devices[0])
	}
	if got := f.auth(); got != "Bearer tkn" {
		t.Errorf("Authorization = %q, want bearer session token", got)
	}
}

func TestServiceDevice(t *testing.T) {
	f := newFakeRuntime(t)
	f.script(func() {
		f.devices = []DeviceInfo{{Name: "ibm_kyoto", Qubits: 127}}
	})
	svc := f.service(t)

	d, err := svc.Device(context.Background(), "ibm_kyoto")
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if d.Name != "ibm_kyoto" {
		t.Errorf("Device() = %+v, want ibm_kyoto", d)
	}

	if _, err := svc.Device(context.Background(), "ibm_nowhere"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Device(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestServiceDeviceStatus(t *testing.T) {
	f := newFakeRuntime(t)
	f.script(func() {
		f.status["ibm_kyoto"] = DeviceStatus{State: true, Status: "active", QueueLength: 7}
	})
	svc := f.service(t)

	st, err := svc.DeviceStatus(context.Background(), "ibm_kyoto")
	if err != nil {
		t.Fatalf("DeviceStatus() error = %v", err)
	}
	if !st.Operational() || st.QueueLength != 7 {
		t.Errorf("DeviceStatus() = %+v, want operational with queue 7", st)
	}

	if _, err := svc.DeviceStatus(context.Background(), "ibm_nowhere"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("DeviceStatus(missing) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestServiceLeastBusy(t *testing.T) {
	tests := []struct {
		name    string
		devices []DeviceInfo
		status  map[string]DeviceStatus
		want    string
		wantErr error
	}{
		{
			name: "shortest queue wins",
			devices: []DeviceInfo{
				{Name: "ibm_kyoto"},
				{Name: "ibm_osaka"},
			},
			status: map[string]DeviceStatus{
				"ibm_kyoto": {State: true, QueueLength: 5},
				"ibm_osaka": {State: true, QueueLength: 2},
			},
			want: "ibm_osaka",
		},
		{
			name: "tie breaks to smallest name",
			devices: []DeviceInfo{
				{Name: "ibm_torino"},
				{Name: "ibm_brisbane"},
			},
			status: map[string]DeviceStatus{
				"ibm_torino":   {State: true, QueueLength: 3},
				"ibm_brisbane": {State: true, QueueLength: 3},
			},
			want: "ibm_brisbane",
		},
		{
			name: "simulators, down devices, and failed probes skipped",
			devices: []DeviceInfo{
				{Name: "aer_sim", Simulator: true},
				{Name: "ibm_down"},
				{Name: "ibm_ghost"},
				{Name: "ibm_kyoto"},
			},
			status: map[string]DeviceStatus{
				"aer_sim":  {State: true, QueueLength: 0},
				"ibm_down": {State: false, QueueLength: 0},
				// ibm_ghost has no status entry; the probe 404s
				"ibm_kyoto": {State: true, QueueLength: 9},
			},
			want: "ibm_kyoto",
		},
		{
			name: "nothing operational",
			devices: []DeviceInfo{
				{Name: "aer_sim", Simulator: true},
				{Name: "ibm_down"},
			},
			status: map[string]DeviceStatus{
				"ibm_down": {State: false},
			},
			wantErr: ErrNoDevices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeRuntime(t)
			f.script(func() {
				f.devices = tt.devices
				f.status = tt.status
			})
			svc := f.service(t)

			got, err := svc.LeastBusy(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("LeastBusy() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LeastBusy() error = %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("LeastBusy() = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	f := newFakeRuntime(t)
	f.script(func() {
		f.jobStates = []string{JobQueued, JobRunning, JobCompleted}
		f.counts = backend.Counts{"101": 3, "010": 1}
	})
	svc := f.service(t)

	qasm := "OPENQASM 3.0;\ninclude \"stdgates.inc\";\nqubit[3] q;\nbit[3] c;\nc = measure q;\n"
	counts, err := svc.Run(context.Background(), "ibm_kyoto", qasm, 4)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if counts.Total() != 4 {
		t.Errorf("counts total = %d, want 4", counts.Total())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polls < 3 {
		t.Errorf("polls = %d, want at least 3 before completion", f.polls)
	}
	if f.lastSubmit.ProgramID != "sampler" {
		t.Errorf("program_id = %q, want sampler", f.lastSubmit.ProgramID)
	}
	if f.lastSubmit.Backend != "ibm_kyoto" {
		t.Errorf("backend = %q, want ibm_kyoto", f.lastSubmit.Backend)
	}
	if f.lastSubmit.Instance != "crn:test" {
		t.Errorf("instance = %q, want the session instance", f.lastSubmit.Instance)
	}
	if f.lastSubmit.Params.Shots != 4 {
		t.Errorf("shots = %d, want 4", f.lastSubmit.Params.Shots)
	}
	if len(f.lastSubmit.Params.Circuits) != 1 || !strings.HasPrefix(f.lastSubmit.Params.Circuits[0], "OPENQASM 3.0;") {
		t.Errorf("circuits = %q, want one OpenQASM program", f.lastSubmit.Params.Circuits)
	}
}

func TestServiceRunJobFailed(t *testing.T) {
	f := newFakeRuntime(t)
	f.script(func() {
		f.jobStates = []string{JobFailed}
		f.jobReason = "calibration in progress"
	})
	svc := f.service(t)

	_, err := svc.Run(context.Background(), "ibm_kyoto", "OPENQASM 3.0;\n", 4)
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("Run() error = %v, want ErrJobFailed", err)
	}
	if !strings.Contains(err.Error(), "calibration in progress") {
		t.Errorf("Run() error = %v, want the service reason included", err)
	}
}

func TestServiceRunCanceled(t *testing.T) {
	f := newFakeRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.script(func() {
		f.jobStates = []string{JobQueued}
		f.onPoll = func() {
			time.AfterFunc(10*time.Millisecond, cancel)
		}
	})

	// long poll interval keeps the loop parked in the ticker wait
	svc := f.service(t, WithPollInterval(time.Minute))
	_, err := svc.Run(ctx, "ibm_kyoto", "OPENQASM 3.0;\n", 4)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestServiceUnavailable(t *testing.T) {
	f := newFakeRuntime(t)
	svc := f.service(t)
	f.srv.Close()

	if _, err := svc.Devices(context.Background()); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Devices() error = %v, want backend.ErrUnavailable", err)
	}
	if _, err := svc.Run(context.Background(), "ibm_kyoto", "OPENQASM 3.0;\n", 4); !errors.Is(err, backend.ErrUnavailable) {
		t.Errorf("Run() error = %v, want backend.ErrUnavailable", err)
	}
}
