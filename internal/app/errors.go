package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRole      = errors.New("role must be user or assistant")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrInvalidLimit     = errors.New("limit must be between 1 and 1000")
	ErrBucketNotAllowed = errors.New("bucket is not allowed")
	ErrLLMConfig        = errors.New("llm config is invalid")
)

type UploadErrorKind int

const (
	// UploadUnconfigured means no object store client is available.
	UploadUnconfigured UploadErrorKind = iota + 1
	// UploadWriteFailed means the object store answered the write with an error.
	UploadWriteFailed
	// UploadConflict means the storage key already existed.
	UploadConflict
	// UploadUnknown covers transport failures and anything unexpected.
	UploadUnknown
)

func (k UploadErrorKind) String() string {
	switch k {
	case UploadUnconfigured:
		return "unconfigured"
	case UploadWriteFailed:
		return "write_failed"
	case UploadConflict:
		return "conflict"
	case UploadUnknown:
		return "unknown"
	}
	return fmt.Sprintf("UploadErrorKind(%d)", int(k))
}

type UploadError struct {
	Kind UploadErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return "upload " + e.Kind.String()
	}
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type PersistErrorKind int

const (
	PersistConnectionFailed PersistErrorKind = iota + 1
	PersistWriteRejected
	PersistInternal
)

func (k PersistErrorKind) String() string {
	switch k {
	case PersistConnectionFailed:
		return "connection_failed"
	case PersistWriteRejected:
		return "write_rejected"
	case PersistInternal:
		return "internal_error"
	}
	return fmt.Sprintf("PersistErrorKind(%d)", int(k))
}

type PersistError struct {
	Kind PersistErrorKind
	Err  error
}

func (e *PersistError) Error() string {
	if e.Err == nil {
		return "persist " + e.Kind.String()
	}
	return fmt.Sprintf("persist %s: %v", e.Kind, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

type FetchErrorKind int

const (
	FetchUnavailable FetchErrorKind = iota + 1
	FetchInternal
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchUnavailable:
		return "unavailable"
	case FetchInternal:
		return "internal_error"
	}
	return fmt.Sprintf("FetchErrorKind(%d)", int(k))
}

// FetchError accompanies an empty history when the log store could not be
// read.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "fetch " + e.Kind.String()
	}
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
