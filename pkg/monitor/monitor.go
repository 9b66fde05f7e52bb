package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// ErrNoCredential is returned when no vendor API key has been configured.
var ErrNoCredential = errors.New("no api credential configured")

// Monitor polls the vendor cloud on an interval and keeps the most recent
// telemetry snapshot. Slow responses that arrive after a newer poll has
// already completed are discarded, and swapping credentials invalidates
// every poll still in flight.
type Monitor struct {
	mu       sync.Mutex
	api      givenergy.API
	interval time.Duration
	paused   bool

	// gen increments whenever the api changes so in-flight polls from a
	// previous credential can never land
	gen      uint64
	identity *types.DeviceIdentity
	latest   *types.TelemetrySnapshot
	lastErr  error
}

// Configured returns a Monitor configured via lflag. The poll interval is
// a startup default, settings can adjust it at runtime via SetInterval.
func Configured() *Monitor {
	m := &Monitor{}
	interval := lflag.Duration("poll-interval", 10*time.Second, "telemetry polling interval")
	lflag.Do(func() {
		m.interval = *interval
	})
	return m
}

// New returns a Monitor with an explicit API and interval, used in tests.
func New(api givenergy.API, interval time.Duration) *Monitor {
	return &Monitor{api: api, interval: interval}
}

// SetAPI swaps the vendor client. Any identity and telemetry from the old
// client is discarded and polls still in flight are invalidated.
func (m *Monitor) SetAPI(api givenergy.API) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.api = api
	m.gen++
	m.identity = nil
	m.latest = nil
	m.lastErr = nil
}

// SetPaused pauses or resumes polling without discarding state.
func (m *Monitor) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

// SetInterval adjusts the polling cadence. It takes effect on the next
// tick.
func (m *Monitor) SetInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval > 0 {
		m.interval = interval
	}
}

// Run polls until ctx is canceled. Each poll runs in its own goroutine so
// a slow vendor response never delays the next tick.
func (m *Monitor) Run(ctx context.Context) {
	go m.pollOnce(ctx)

	m.mu.Lock()
	interval := m.interval
	m.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.interval != interval {
				interval = m.interval
				ticker.Reset(interval)
			}
			m.mu.Unlock()
			go m.pollOnce(ctx)
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	m.mu.Lock()
	api := m.api
	gen := m.gen
	identity := m.identity
	paused := m.paused
	m.mu.Unlock()

	if paused {
		return
	}
	if api == nil {
		m.setErr(gen, ErrNoCredential)
		return
	}

	if identity == nil {
		resolved, err := api.ResolveDeviceIdentity(ctx)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to resolve device identity", slog.Any("error", err))
			m.setErr(gen, err)
			return
		}
		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.identity = &resolved
		m.mu.Unlock()
		identity = &resolved
	}

	snap, err := api.FetchSnapshot(ctx, *identity)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to fetch snapshot", slog.Any("error", err))
		m.setErr(gen, err)
		return
	}
	m.apply(gen, snap)
}

// apply stores the snapshot unless it has been superseded, either by a
// credential change or by a newer snapshot that finished first.
func (m *Monitor) apply(gen uint64, snap types.TelemetrySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	if m.latest != nil && !snap.Timestamp.After(m.latest.Timestamp) {
		return
	}
	m.latest = &snap
	m.lastErr = nil
}

func (m *Monitor) setErr(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	m.lastErr = err
}

// API returns the current vendor client, or nil when no credential is
// configured.
func (m *Monitor) API() givenergy.API {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.api
}

// Latest returns the most recent snapshot and whether one exists yet.
func (m *Monitor) Latest() (types.TelemetrySnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return types.TelemetrySnapshot{}, false
	}
	return *m.latest, true
}

// Identity returns the device identity, resolving it on demand if polling
// hasn't discovered it yet.
func (m *Monitor) Identity(ctx context.Context) (types.DeviceIdentity, error) {
	m.mu.Lock()
	api := m.api
	gen := m.gen
	if m.identity != nil {
		identity := *m.identity
		m.mu.Unlock()
		return identity, nil
	}
	m.mu.Unlock()

	if api == nil {
		return types.DeviceIdentity{}, ErrNoCredential
	}
	resolved, err := api.ResolveDeviceIdentity(ctx)
	if err != nil {
		return types.DeviceIdentity{}, err
	}

	m.mu.Lock()
	if m.gen == gen && m.identity == nil {
		m.identity = &resolved
	}
	m.mu.Unlock()
	return resolved, nil
}

// Err returns the error from the most recent failed poll, or nil if the
// last poll succeeded.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
