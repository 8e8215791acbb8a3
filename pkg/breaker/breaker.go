package breaker

import (
	"errors"
	"strategy-lab/pkg/logger"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned without calling the protected function while a breaker is open.
var ErrOpen = gobreaker.ErrOpenState

type Settings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// StateListener is notified on every transition, e.g. to export breaker state as a metric.
type StateListener func(name string, from, to gobreaker.State)

// Manager lazily creates one circuit breaker per upstream name.
type Manager struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	settings  Settings
	log       *logger.Logger
	listeners []StateListener
}

func NewManager(settings Settings, log *logger.Logger, listeners ...StateListener) *Manager {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 3
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = time.Minute
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}
	return &Manager{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		settings:  settings,
		log:       log,
		listeners: listeners,
	}
}

func (m *Manager) get(name string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}

	threshold := m.settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: m.settings.HalfOpenRequests,
		Timeout:     m.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.log.Warn("Circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
			for _, l := range m.listeners {
				l(name, from, to)
			}
		},
	})
	m.breakers[name] = cb
	return cb
}

// Execute runs fn through the breaker registered under name.
func (m *Manager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.get(name).Execute(fn)
}

func (m *Manager) State(name string) gobreaker.State {
	return m.get(name).State()
}

// IsOpen reports an error that came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Do is the typed form of Execute.
func Do[T any](m *Manager, name string, fn func() (T, error)) (T, error) {
	out, err := m.Execute(name, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := out.(T)
	return typed, nil
}
