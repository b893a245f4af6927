package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	o := New()
	assert.Equal(t, Counter, o.IDType)
	assert.Equal(t, Ordinal, o.StringComparer)
	assert.Equal(t, 3*time.Hour, o.MaxExpirationTime)
	assert.Equal(t, 10, o.MaxStateHistoryLength)
	assert.Equal(t, 15*time.Second, o.CommandTimeout)
}

func TestNew_Overrides(t *testing.T) {
	o := New(
		WithIDType(UUID),
		WithStringComparer(OrdinalIgnoreCase),
		WithMaxExpirationTime(time.Hour),
		WithMaxStateHistoryLength(5),
		WithCommandTimeout(2*time.Second),
	)
	assert.Equal(t, UUID, o.IDType)
	assert.Equal(t, OrdinalIgnoreCase, o.StringComparer)
	assert.Equal(t, time.Hour, o.MaxExpirationTime)
	assert.Equal(t, 5, o.MaxStateHistoryLength)
	assert.Equal(t, 2*time.Second, o.CommandTimeout)
}

func TestNew_NonPositiveHistoryLengthFallsBackToDefault(t *testing.T) {
	o := New(WithMaxStateHistoryLength(0))
	assert.Equal(t, 10, o.MaxStateHistoryLength)

	o = New(WithMaxStateHistoryLength(-5))
	assert.Equal(t, 10, o.MaxStateHistoryLength)
}

func TestStringEqual(t *testing.T) {
	o := New(WithStringComparer(Ordinal))
	assert.False(t, o.StringEqual()("Foo", "foo"))

	o = New(WithStringComparer(OrdinalIgnoreCase))
	assert.True(t, o.StringEqual()("Foo", "foo"))
}

func TestStringCompare(t *testing.T) {
	o := New(WithStringComparer(Ordinal))
	assert.NotEqual(t, 0, o.StringCompare()("Foo", "foo"))

	o = New(WithStringComparer(OrdinalIgnoreCase))
	assert.Equal(t, 0, o.StringCompare()("Foo", "foo"))
}

func TestClampExpiration(t *testing.T) {
	o := New(WithMaxExpirationTime(time.Hour))
	assert.Equal(t, time.Hour, o.ClampExpiration(2*time.Hour, false))
	assert.Equal(t, 30*time.Minute, o.ClampExpiration(30*time.Minute, false))
	assert.Equal(t, 2*time.Hour, o.ClampExpiration(2*time.Hour, true), "ignoreMax bypasses the cap (counters)")
}

func TestClampExpiration_NegativeMaxMeansUncapped(t *testing.T) {
	o := New(WithMaxExpirationTime(-1))
	assert.Equal(t, 100*time.Hour, o.ClampExpiration(100*time.Hour, false))
}
