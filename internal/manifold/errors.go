package manifold

import "errors"

// Sentinel errors surfaced by the core, per the error handling design: they
// are returned, never retried internally, and never panic on valid input.
var (
	// ErrEmptyInput is returned by Ingest/MarkSalient when tokenization
	// yields zero tokens.
	ErrEmptyInput = errors.New("manifold: empty input")

	// ErrOutOfNeighborhood marks an attempt to insert or leave an
	// occurrence outside its neighborhood's geodesic radius. A
	// programming-error condition: the drift step must never let this
	// escape (see query.go's staged commit), so seeing it propagate
	// indicates a bug in the caller or in this package.
	ErrOutOfNeighborhood = errors.New("manifold: occurrence outside neighborhood radius")

	// ErrInvalidRadius is returned by RandomNear when radius > π/2.
	ErrInvalidRadius = errors.New("manifold: radius exceeds π/2")

	// ErrCorruptState is returned by Import when a snapshot fails
	// validation (bad quaternion norms, mass drift beyond tolerance,
	// dangling ids).
	ErrCorruptState = errors.New("manifold: corrupt snapshot state")

	// ErrUnknownEntity is returned by id-based lookups that require an
	// existing entity.
	ErrUnknownEntity = errors.New("manifold: unknown entity id")
)
