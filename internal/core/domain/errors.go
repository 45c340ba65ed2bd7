package domain

import "errors"

// ErrorKind classifies a producer failure so callers can decide whether to
// drop the offending input and keep running, or treat the producer as
// terminally failed.
type ErrorKind int8

const (
	ErrKindProtocolMismatch ErrorKind = iota
	ErrKindTransport
	ErrKindAuth
	ErrKindConfiguration
	ErrKindFileIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindProtocolMismatch:
		return "protocol-mismatch"
	case ErrKindTransport:
		return "transport"
	case ErrKindAuth:
		return "auth"
	case ErrKindConfiguration:
		return "configuration"
	case ErrKindFileIO:
		return "file-io"
	default:
		return "unknown"
	}
}

// ProducerError wraps an underlying error with the taxonomy kind needed to
// decide drop-vs-terminate policy, without losing errors.Is/As compatibility
// with the wrapped cause.
type ProducerError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ProducerError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *ProducerError) Unwrap() error { return e.Err }

func NewProducerError(kind ErrorKind, op string, err error) *ProducerError {
	return &ProducerError{Kind: kind, Op: op, Err: err}
}

// Terminal reports whether an error of this kind should end the producer's
// run loop (auth/configuration failures) rather than simply being logged
// and skipped (protocol-mismatch/transport hiccups).
func (k ErrorKind) Terminal() bool {
	switch k {
	case ErrKindAuth, ErrKindConfiguration:
		return true
	default:
		return false
	}
}

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrSensorMismatch  = errors.New("tzsp sensor mac mismatch")
	ErrUnsupportedTag  = errors.New("unsupported tzsp tag")
	ErrHostKeyRejected = errors.New("ssh host key rejected")
	ErrNotConnected    = errors.New("not connected")
)
