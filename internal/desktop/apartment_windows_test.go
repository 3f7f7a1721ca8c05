//go:build windows

package desktop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApartment_RunsCalls(t *testing.T) {
	apt, err := startApartment()
	require.NoError(t, err)
	defer apt.stop()

	ran := false
	require.NoError(t, apt.do(func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	boom := errors.New("boom")
	assert.ErrorIs(t, apt.do(func() error { return boom }), boom)
}

func TestApartment_SurvivesPanic(t *testing.T) {
	apt, err := startApartment()
	require.NoError(t, err)
	defer apt.stop()

	err = apt.do(func() error {
		panic("bad vtable")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	assert.NoError(t, apt.do(func() error { return nil }), "apartment still serves calls")
}

func TestApartment_StoppedRejectsCalls(t *testing.T) {
	apt, err := startApartment()
	require.NoError(t, err)

	apt.stop()
	apt.stop()

	assert.ErrorIs(t, apt.do(func() error { return nil }), errApartmentStopped)
}
