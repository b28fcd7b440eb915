package analysis

import "fmt"

// FailureKind classifies why a chunk produced no usable result. The
// distinction between JSONNotFound (no object-shaped candidate in the
// response at all) and JSONParse (a candidate was found but would not
// parse even after repair) is part of the contract: callers report them
// differently.
type FailureKind string

const (
	FailureMissingCredential FailureKind = "MISSING_CREDENTIAL"
	FailureEmptyResponse     FailureKind = "EMPTY_RESPONSE"
	FailureJSONNotFound      FailureKind = "JSON_NOT_FOUND"
	FailureJSONParse         FailureKind = "JSON_PARSE_ERROR"
	FailureProvider          FailureKind = "PROVIDER_ERROR"
)

// Failure is the only error type that crosses the chunk boundary. Raw
// provider errors are wrapped, never propagated as-is.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func Failuref(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}
