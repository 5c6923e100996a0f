package fault

import (
	"errors"
	"fmt"
)

// #region kind

// Kind labels the origin of a failure for logging and recovery dispatch.
type Kind string

const (
	KindNormalization  Kind = "normalization"
	KindPrediction     Kind = "prediction"
	KindInitialization Kind = "initialization"
	KindProcessing     Kind = "processing"
	KindAdaptation     Kind = "adaptation"
	KindMonitoring     Kind = "monitoring"
	KindModelUpdate    Kind = "model_update"
	KindCritical       Kind = "critical"
)

// #endregion kind

// #region error

// Error is a domain error: a kind, a human-readable message, and the
// original cause preserved for diagnosis.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the causal chain to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// #endregion error

// #region constructors

// New creates a domain error with no underlying cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap labels an arbitrary cause with a kind and contextual message.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// #endregion constructors

// #region inspection

// Is reports whether any error in the chain carries the given kind.
// A ProcessingError caused by a NormalizationError matches both kinds.
func Is(err error, kind Kind) bool {
	for _, k := range KindsOf(err) {
		if k == kind {
			return true
		}
	}
	return false
}

// KindsOf returns every kind found along the cause chain, outermost first.
func KindsOf(err error) []Kind {
	var kinds []Kind
	for err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			kinds = append(kinds, fe.Kind)
			err = fe.Err
			continue
		}
		err = errors.Unwrap(err)
	}
	return kinds
}

// #endregion inspection
