package state

import (
	"errors"
	"fmt"
)

// Status is the lifecycle stage of an asynchronous request.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrorInfo is the structured payload carried by a failed resource.
type ErrorInfo struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"` // HTTP status when the failure came from the API
}

func (e ErrorInfo) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

// statusCoder is implemented by errors that know the HTTP status they came from.
type statusCoder interface {
	StatusCode() int
}

// messager is implemented by errors whose Error text decorates a plainer
// message.
type messager interface {
	ErrorMessage() string
}

// ErrorFrom converts any error into an ErrorInfo.
func ErrorFrom(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{Message: "unknown error"}
	}
	var info ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	out := ErrorInfo{Message: err.Error()}
	var m messager
	if errors.As(err, &m) {
		out.Message = m.ErrorMessage()
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		out.Status = sc.StatusCode()
	}
	return out
}

// Resource wraps a value with its request lifecycle. A resource is created
// pending and settles exactly once; settling returns a new resource and never
// modifies the receiver.
type Resource[T any] struct {
	status Status
	value  T
	err    *ErrorInfo
	seq    uint64
}

// Pending returns a new pending resource stamped with the request sequence.
func Pending[T any](seq uint64) *Resource[T] {
	return &Resource[T]{status: StatusPending, seq: seq}
}

// Status reports the lifecycle stage. It is the only discriminant consumers
// should branch on.
func (r *Resource[T]) Status() Status {
	return r.status
}

// Seq is the sequence number of the request that created the resource.
func (r *Resource[T]) Seq() uint64 {
	return r.seq
}

// Value returns the loaded value; ok is false unless the status is SUCCESS.
func (r *Resource[T]) Value() (T, bool) {
	if r.status != StatusSuccess {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the failure payload; ok is false unless the status is ERROR.
func (r *Resource[T]) Err() (ErrorInfo, bool) {
	if r.status != StatusError || r.err == nil {
		return ErrorInfo{}, false
	}
	return *r.err, true
}

// Succeed settles a pending resource with a value.
func (r *Resource[T]) Succeed(v T) (*Resource[T], error) {
	if r.status != StatusPending {
		return r, fmt.Errorf("resource %d already settled as %s", r.seq, r.status)
	}
	return &Resource[T]{status: StatusSuccess, value: v, seq: r.seq}, nil
}

// Fail settles a pending resource with an error payload.
func (r *Resource[T]) Fail(info ErrorInfo) (*Resource[T], error) {
	if r.status != StatusPending {
		return r, fmt.Errorf("resource %d already settled as %s", r.seq, r.status)
	}
	return &Resource[T]{status: StatusError, err: &info, seq: r.seq}, nil
}
