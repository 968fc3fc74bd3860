// Package resilience provides fault tolerance for calls to upstream APIs.
package resilience

import (
	"context"
	"errors"
	"time"

	"portal_server/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Classifier reports whether err should count against the upstream's health.
// Client-side errors (bad request, not found, revoked grant) return false.
type Classifier func(err error) bool

// Settings configures a Breaker.
type Settings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// Trips after more than ConsecutiveFailures in a row, or once MinRequests have
	// been seen with at least FailureRatio of them failing.
	ConsecutiveFailures uint32
	MinRequests         uint32
	FailureRatio        float64
	IsFailure           Classifier
}

// DefaultSettings mirrors the limits used for the Gmail API.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:                name,
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		MinRequests:         10,
		FailureRatio:        0.6,
	}
}

// Breaker guards an upstream dependency with a gobreaker circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a breaker from settings.
func NewBreaker(s Settings) *Breaker {
	isFailure := s.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return true }
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures > s.ConsecutiveFailures {
				return true
			}
			if counts.Requests < s.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			return !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("[CircuitBreaker] state changed")
		},
	})}
}

// Execute runs fn through the breaker. When the breaker is open the call is
// rejected with ErrCircuitOpen without running fn.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// IsOpen reports whether calls are currently being rejected.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}
