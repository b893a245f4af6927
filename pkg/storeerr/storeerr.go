// Package storeerr defines the error kinds the engine surfaces to callers. Errors of these kinds wrap one of the
// sentinels below, so callers can branch with errors.Is instead of string matching; key-parsing errors from
// pkg/keys wrap the underlying parse error instead.
package storeerr

import "errors"

// Kind identifies the category of a failure, mirroring the error-kind table of the engine's contract.
type Kind int

const (
	// KindUnknown is the zero value; never returned by the engine itself.
	KindUnknown Kind = iota
	// KindLockTimeout: acquire_distributed_lock exceeded its timeout.
	KindLockTimeout
	// KindCommandTimeout: the dispatcher did not complete a command within CommandTimeout.
	KindCommandTimeout
	// KindServerGone: heartbeat/submission after dispatcher shutdown, or for an unknown server.
	KindServerGone
	// KindJobLoadException: surfaced from invocation deserialization; attached to a result rather than thrown.
	KindJobLoadException
	// KindInvalidArgument: inverted range bounds, empty queue arrays, non-positive timeouts where positive required.
	KindInvalidArgument
	// KindAlreadyExists: job_create collided with an existing key.
	KindAlreadyExists
	// KindProtocolError: a lock was released by a non-owner, or a wait-list tombstone was observed externally —
	// both indicate an engine bug; fatal to the operation but recoverable at the process level.
	KindProtocolError
	// KindCancelled: a blocking call was cancelled (dispatcher shutdown drain, FetchNextJob cancellation).
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindLockTimeout:
		return "LockTimeout"
	case KindCommandTimeout:
		return "CommandTimeout"
	case KindServerGone:
		return "ServerGone"
	case KindJobLoadException:
		return "JobLoadException"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindProtocolError:
		return "ProtocolError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Sentinel errors, one per Kind, suitable for errors.Is comparisons and for wrapping with fmt.Errorf("...: %w", ...).
var (
	ErrLockTimeout      = errors.New("lock acquisition timed out")
	ErrCommandTimeout   = errors.New("dispatcher command timed out")
	ErrServerGone       = errors.New("dispatcher is no longer running")
	ErrJobLoadException = errors.New("job invocation data failed to load")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyExists    = errors.New("key already exists")
	ErrProtocolError    = errors.New("engine protocol violation")
	ErrCancelled        = errors.New("operation cancelled")
)

// kindBySentinel backs KindOf; keep in sync with the sentinel list above.
var kindBySentinel = map[error]Kind{
	ErrLockTimeout:      KindLockTimeout,
	ErrCommandTimeout:   KindCommandTimeout,
	ErrServerGone:       KindServerGone,
	ErrJobLoadException: KindJobLoadException,
	ErrInvalidArgument:  KindInvalidArgument,
	ErrAlreadyExists:    KindAlreadyExists,
	ErrProtocolError:    KindProtocolError,
	ErrCancelled:        KindCancelled,
}

// KindOf returns the Kind of err if it wraps one of the sentinels above, or KindUnknown otherwise.
func KindOf(err error) Kind {
	for sentinel, kind := range kindBySentinel {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}
