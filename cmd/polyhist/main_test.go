package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowDates(t *testing.T) {
	w, err := parseWindow("2025-01-01..2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), w.End)
}

func TestParseWindowRFC3339(t *testing.T) {
	w, err := parseWindow("2025-01-01T12:00:00Z..2025-06-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, w.Start.Hour())
}

func TestParseWindowErrors(t *testing.T) {
	_, err := parseWindow("")
	assert.Error(t, err)

	_, err = parseWindow("2025-01-01")
	assert.Error(t, err)

	_, err = parseWindow("2026-01-01..2025-01-01")
	assert.Error(t, err)

	_, err = parseWindow("soon..later")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams("lookback=12,z=2.0")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lookback": "12", "z": "2.0"}, params)

	params, err = parseParams("")
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = parseParams("broken")
	assert.Error(t, err)
}
