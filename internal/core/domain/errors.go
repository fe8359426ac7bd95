package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("domain: not found")

	// ErrInvalidArgument marks caller input that fails a simple presence check.
	ErrInvalidArgument = errors.New("domain: invalid argument")

	// ErrInvalidBirthData marks a birth record that cannot be sent to the ephemeris.
	ErrInvalidBirthData = errors.New("domain: invalid birth data")

	// ErrInvalidPlanetPosition marks an ephemeris position outside [0, 360).
	ErrInvalidPlanetPosition = errors.New("domain: invalid planet position")

	// ErrUpstreamUnavailable marks a failed call to an external collaborator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrGenerationTimeout is recorded when a provider never reaches a terminal status.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationFailed is recorded when a provider reports failure.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidTransition is returned when a finished generation is updated again.
	ErrInvalidTransition = errors.New("domain: invalid status transition")
)
