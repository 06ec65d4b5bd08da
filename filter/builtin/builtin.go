// Package builtin registers the filter models shipped with posecap: temporal smoothing of
// joint positions, orientations and animation units, and the structural mirror, amplifier and
// tilt correction filters.
package builtin

import (
	"github.com/pkg/errors"

	"go.viam.com/posecap/utils"
)

// Radii and thresholds are clamped to at least this value before being divided by.
const minRadius = 1e-6

func validateUnit(path, field string, v float64) error {
	if v < 0 || v > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("%q must be between 0 and 1, got %v", field, v))
	}
	return nil
}

func validatePositive(path, field string, v float64) error {
	if v <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("%q must be positive, got %v", field, v))
	}
	return nil
}
