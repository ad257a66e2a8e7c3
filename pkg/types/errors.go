package types

import "errors"

// Code is the wire-visible error kind. Every StorageError carries exactly
// one Code; PARTIAL_SUCCESS and SUCCEEDED are request-level aggregates
// assembled by pkg/query, not raised by an operator directly.
type Code int32

const (
	CodeSucceeded Code = iota
	CodePartialSuccess
	CodeKeyNotFound
	CodeInvalidVid
	CodeInvalidFieldValue
	CodeInvalidFilter
	CodeInvalidUpdater
	CodeInvalidData
	CodeFilterOut
	CodeTagNotFound
	CodeEdgeNotFound
	CodeSpaceNotFound
	CodeIndexNotFound
	CodeTagPropNotFound
	CodeEdgePropNotFound
	CodeMutateTagConflict
	CodeConflict
	CodeDataConflict
	CodeIndexLocked
	CodeStorageMemoryExceeded
	CodeRPCExceedDeadline
	CodePartialResult
	CodeUnknown
)

func (c Code) String() string {
	switch c {
	case CodeSucceeded:
		return "SUCCEEDED"
	case CodePartialSuccess:
		return "PARTIAL_SUCCESS"
	case CodeKeyNotFound:
		return "E_KEY_NOT_FOUND"
	case CodeInvalidVid:
		return "E_INVALID_VID"
	case CodeInvalidFieldValue:
		return "E_INVALID_FIELD_VALUE"
	case CodeInvalidFilter:
		return "E_INVALID_FILTER"
	case CodeInvalidUpdater:
		return "E_INVALID_UPDATER"
	case CodeInvalidData:
		return "E_INVALID_DATA"
	case CodeFilterOut:
		return "E_FILTER_OUT"
	case CodeTagNotFound:
		return "E_TAG_NOT_FOUND"
	case CodeEdgeNotFound:
		return "E_EDGE_NOT_FOUND"
	case CodeSpaceNotFound:
		return "E_SPACE_NOT_FOUND"
	case CodeIndexNotFound:
		return "E_INDEX_NOT_FOUND"
	case CodeTagPropNotFound:
		return "E_TAG_PROP_NOT_FOUND"
	case CodeEdgePropNotFound:
		return "E_EDGE_PROP_NOT_FOUND"
	case CodeMutateTagConflict:
		return "E_MUTATE_TAG_CONFLICT"
	case CodeConflict:
		return "E_CONFLICT"
	case CodeDataConflict:
		return "E_DATA_CONFLICT_ERROR"
	case CodeIndexLocked:
		return "E_INDEX_LOCKED"
	case CodeStorageMemoryExceeded:
		return "E_STORAGE_MEMORY_EXCEEDED"
	case CodeRPCExceedDeadline:
		return "E_RPC_EXCEED_DEADLINE"
	case CodePartialResult:
		return "E_PARTIAL_RESULT"
	default:
		return "E_UNKNOWN"
	}
}

// StorageError is the typed error every operator and driver entry point
// returns; it carries the wire Code alongside the usual wrapped error
// chain so callers can both log a root cause and report a Code upstream.
type StorageError struct {
	Code Code
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Code.String()
	}
	return e.Op + ": " + e.Code.String() + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewError builds a StorageError, wrapping an optional underlying cause.
func NewError(code Code, op string, err error) *StorageError {
	return &StorageError{Code: code, Op: op, Err: err}
}

// CodeOf extracts the wire Code from err, defaulting to CodeUnknown for any
// error that isn't a *StorageError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSucceeded
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// IsHardFault reports whether an error must unwind the whole partition
// loop rather than just the current input.
func IsHardFault(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidVid, CodeStorageMemoryExceeded, CodeRPCExceedDeadline:
		return true
	default:
		return false
	}
}

// ErrKeyNotFound is the sentinel returned by pkg/kvstore point reads for
// the single most common miss case.
var ErrKeyNotFound = errors.New("key not found")
