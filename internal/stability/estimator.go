// Package stability estimates connection quality as an exponential moving
// average of per-cycle receive scores in [0, 100].
package stability

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChangeRate = errors.New("stability: change rate must be within (0, 1)")
	ErrInvalidFrequency  = errors.New("stability: frequency must be positive")
)

// DefaultChangeRate is the smoothing factor for a 50 Hz polling loop.
const DefaultChangeRate = 0.8454

// Frequency mapping: beta = slope*interval_us + intercept, clamped.
const (
	frequencySlope     = -7.3e-7
	frequencyIntercept = 0.86
	minChangeRate      = 0.1
	maxChangeRate      = 0.97
)

// Estimator smooths receive scores. Larger change rates react more slowly.
type Estimator struct {
	beta  float64
	value float64
}

// New returns an estimator with the given change rate and a value of 0.
func New(beta float64) (*Estimator, error) {
	e := &Estimator{}
	if err := e.SetChangeRate(beta); err != nil {
		return nil, err
	}
	return e, nil
}

// NewDefault returns an estimator using DefaultChangeRate.
func NewDefault() *Estimator {
	return &Estimator{beta: DefaultChangeRate}
}

// SetChangeRate sets beta explicitly. The current value is kept.
func (e *Estimator) SetChangeRate(beta float64) error {
	if !(beta > 0 && beta < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidChangeRate, beta)
	}
	e.beta = beta
	return nil
}

// ChangeRateForFrequency maps a polling frequency to a change rate so that
// the estimate settles in roughly the same wall-clock time at any rate.
func ChangeRateForFrequency(hz float64) (float64, error) {
	if !(hz > 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFrequency, hz)
	}
	intervalMicros := 1e6 / hz
	return clamp(frequencySlope*intervalMicros+frequencyIntercept, minChangeRate, maxChangeRate), nil
}

// AdaptToFrequency sets the change rate for a loop polling at hz.
func (e *Estimator) AdaptToFrequency(hz float64) error {
	beta, err := ChangeRateForFrequency(hz)
	if err != nil {
		return err
	}
	e.beta = beta
	return nil
}

// Update folds one cycle score into the estimate.
func (e *Estimator) Update(score float64) {
	e.value = clamp(e.beta*e.value+(1-e.beta)*score, 0, 100)
}

// Value returns the unrounded estimate.
func (e *Estimator) Value() float64 { return e.value }

// Stability returns the estimate rounded half up.
func (e *Estimator) Stability() uint8 { return uint8(e.value + 0.5) }

// Beta returns the current change rate.
func (e *Estimator) Beta() float64 { return e.beta }

// Reset sets the estimate back to 0.
func (e *Estimator) Reset() { e.value = 0 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
