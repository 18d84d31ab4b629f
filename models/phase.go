package models

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is the workflow stage tag of an image
type Phase string

const (
	PhaseSD       Phase = "SD"
	PhaseDD       Phase = "DD"
	PhaseCD       Phase = "CD"
	PhaseApproved Phase = "Approved"
	PhaseFinal    Phase = "Final"
)

// Phases lists every accepted phase in workflow order
var Phases = []Phase{PhaseSD, PhaseDD, PhaseCD, PhaseApproved, PhaseFinal}

// ErrInvalidPhase is returned by ParsePhase for values outside the enumeration
var ErrInvalidPhase = errors.New("invalid phase")

// ParsePhase normalizes a raw phase value. A nil or empty value clears the
// phase and yields nil.
func ParsePhase(raw *string) (*Phase, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	for _, p := range Phases {
		if string(p) == value {
			phase := p
			return &phase, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPhase, value)
}

// PhaseNames returns the accepted phase values as strings
func PhaseNames() []string {
	names := make([]string, len(Phases))
	for i, p := range Phases {
		names[i] = string(p)
	}
	return names
}
