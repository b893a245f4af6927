// Package options constructs the engine's immutable configuration via functional options, rather than global flags:
// the core is an embeddable library that tests and callers may instantiate many times in one process, so its
// knobs must not be shared package-level state.
package options

import (
	"cmp"
	"strings"
	"time"

	"github.com/jobforge/forge/pkg/keys"
)

// IDType selects which keys.Provider backs job identifiers.
type IDType int

const (
	// Counter issues monotonically increasing 64-bit unsigned integers.
	Counter IDType = iota
	// UUID issues random version-4 UUIDs.
	UUID
)

// StringComparer selects the equality/ordering rule applied to hash fields and parameter names.
type StringComparer int

const (
	// Ordinal compares byte-for-byte.
	Ordinal StringComparer = iota
	// OrdinalIgnoreCase compares case-insensitively.
	OrdinalIgnoreCase
)

const (
	defaultMaxExpirationTime      = 3 * time.Hour
	defaultMaxStateHistoryLength  = 10
	defaultCommandTimeout         = 15 * time.Second
)

// Options is the engine's immutable configuration, built once via New and never mutated afterward.
type Options struct {
	IDType IDType

	StringComparer StringComparer

	// MaxExpirationTime caps any requested TTL for jobs, hashes, lists, and sets. Zero means "use the default";
	// a negative value means "no cap" (counters are never capped regardless of this setting).
	MaxExpirationTime time.Duration

	// MaxStateHistoryLength bounds a job's retained state history; must be positive.
	MaxStateHistoryLength int

	// CommandTimeout bounds how long a client blocks awaiting a dispatcher result before observing CommandTimeout.
	CommandTimeout time.Duration
}

// Option mutates an in-construction Options.
type Option func(*Options)

// WithIDType selects the job-identifier scheme.
func WithIDType(t IDType) Option { return func(o *Options) { o.IDType = t } }

// WithStringComparer selects the comparer for hash fields and job parameter names.
func WithStringComparer(c StringComparer) Option { return func(o *Options) { o.StringComparer = c } }

// WithMaxExpirationTime caps TTLs on jobs/hashes/lists/sets. A negative duration disables the cap.
func WithMaxExpirationTime(d time.Duration) Option { return func(o *Options) { o.MaxExpirationTime = d } }

// WithMaxStateHistoryLength bounds a job's retained state history.
func WithMaxStateHistoryLength(n int) Option { return func(o *Options) { o.MaxStateHistoryLength = n } }

// WithCommandTimeout bounds how long clients wait for the dispatcher.
func WithCommandTimeout(d time.Duration) Option { return func(o *Options) { o.CommandTimeout = d } }

// New builds Options from defaults (IDType=Counter, StringComparer=Ordinal, MaxExpirationTime=3h,
// MaxStateHistoryLength=10, CommandTimeout=15s) overridden by opts in order.
func New(opts ...Option) *Options {
	o := &Options{
		IDType:                 Counter,
		StringComparer:         Ordinal,
		MaxExpirationTime:      defaultMaxExpirationTime,
		MaxStateHistoryLength:  defaultMaxStateHistoryLength,
		CommandTimeout:         defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.MaxStateHistoryLength <= 0 {
		o.MaxStateHistoryLength = defaultMaxStateHistoryLength
	}
	if o.MaxExpirationTime == 0 {
		o.MaxExpirationTime = defaultMaxExpirationTime
	}
	return o
}

// StringEqual returns the equality predicate implied by o.StringComparer.
func (o *Options) StringEqual() func(a, b string) bool {
	if o.StringComparer == OrdinalIgnoreCase {
		return strings.EqualFold
	}
	return func(a, b string) bool { return a == b }
}

// StringCompare returns the ordering function implied by o.StringComparer.
func (o *Options) StringCompare() func(a, b string) int {
	if o.StringComparer == OrdinalIgnoreCase {
		return func(a, b string) int { return cmp.Compare(strings.ToLower(a), strings.ToLower(b)) }
	}
	return cmp.Compare[string]
}

// ClampExpiration applies MaxExpirationTime to a requested TTL, unless ignoreMax is set (used for counters, which
// the data model exempts from the cap).
func (o *Options) ClampExpiration(ttl time.Duration, ignoreMax bool) time.Duration {
	if ignoreMax || o.MaxExpirationTime < 0 {
		return ttl
	}
	if ttl > o.MaxExpirationTime {
		return o.MaxExpirationTime
	}
	return ttl
}

// CounterKeys and UUIDKeys are convenience constructors for the providers that IDType == Counter / UUID name. The
// engine does not read IDType itself: the caller passes the keys.Provider it wants to state.New.
var (
	CounterKeys = keys.NewCounterProvider
	UUIDKeys    = keys.NewUUIDProvider
)
