package codec

import (
	"errors"
	"fmt"
)

// ErrMissingVersion indicates the payload does not start with the fiche marker.
var ErrMissingVersion = errors.New("payload carries no fiche version marker")

// ErrUnsupportedVersion indicates a marker this decoder does not understand,
// including any newer version.
var ErrUnsupportedVersion = errors.New("unsupported payload version")

// ErrTruncated indicates the payload ends before the envelope is complete.
var ErrTruncated = errors.New("payload is truncated")

// ErrCorrupted indicates the payload alphabet, compression stream, checksum or
// body is damaged.
var ErrCorrupted = errors.New("payload is corrupted")

// ErrInvalidFiche indicates a structurally sound payload whose fiche breaks
// the model invariants.
var ErrInvalidFiche = errors.New("payload fiche is invalid")

// EncodingError reports a fiche rejected at encode time.
type EncodingError struct {
	Invariant string
	Err       error
}

func (e *EncodingError) Error() string {
	if e.Invariant == "" {
		return fmt.Sprintf("encode fiche: %v", e.Err)
	}
	return fmt.Sprintf("encode fiche: invariant %q violated: %v", e.Invariant, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError reports a payload that could not be turned into a fiche.
// Reason is one of the Err* sentinels of this package.
type DecodingError struct {
	Reason error
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode fiche: %v", e.Reason)
	}
	return fmt.Sprintf("decode fiche: %v: %v", e.Reason, e.Err)
}

func (e *DecodingError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func decodingError(reason, cause error) error {
	return &DecodingError{Reason: reason, Err: cause}
}

// IsDecodingError reports whether err stems from a rejected payload.
func IsDecodingError(err error) bool {
	var de *DecodingError
	return errors.As(err, &de)
}

// IsEncodingError reports whether err stems from a rejected fiche.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}
