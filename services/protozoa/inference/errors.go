// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inference

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFiniteValue indicates a NaN or Inf surfaced in a belief update,
// gradient, error term or accumulator. It is fatal: the caller must stop
// rather than continue with corrupted numeric state.
var ErrNonFiniteValue = errors.New("non-finite value")

// NonFiniteError records where a non-finite value was detected.
//
// It wraps ErrNonFiniteValue, so errors.Is(err, ErrNonFiniteValue) holds.
type NonFiniteError struct {
	// Stage names the computation that produced the value (e.g. "gradient").
	Stage string

	// Value is the offending value.
	Value float64
}

// Error implements the error interface.
func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s: %v in %s", ErrNonFiniteValue.Error(), e.Value, e.Stage)
}

// Unwrap returns ErrNonFiniteValue.
func (e *NonFiniteError) Unwrap() error {
	return ErrNonFiniteValue
}

// CheckFinite returns a *NonFiniteError for the first non-finite value.
//
// Inputs:
//   - stage: Name of the computation, used in the error.
//   - values: Values to check.
//
// Outputs:
//   - error: nil if every value is finite.
func CheckFinite(stage string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &NonFiniteError{Stage: stage, Value: v}
		}
	}
	return nil
}
