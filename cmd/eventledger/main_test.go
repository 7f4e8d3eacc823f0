package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-03-01")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	got, err = parseTime("2026-03-01T10:00:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 13, got.Hour())

	got, err = parseTime("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseTime("01/03/2026")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 1234 ", "payment id")
	require.NoError(t, err)
	assert.EqualValues(t, 1234, id)

	_, err = parseID("abc", "payment id")
	assert.ErrorContains(t, err, "invalid payment id")
	_, err = parseID("0", "payment id")
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	hdr, err := parseHeaders([]string{"x-signature: ts=1,v1=abc", "X-Request-Id:req-1"})
	require.NoError(t, err)
	assert.Equal(t, "ts=1,v1=abc", hdr.Get("X-Signature"))
	assert.Equal(t, "req-1", hdr.Get("X-Request-Id"))

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)
}

func TestQueryFlags(t *testing.T) {
	q := queryFlags{event: "7", method: "pix", from: "2026-03-01", to: "2026-04-01", rateVersion: 2, page: 3, pageSize: 10}
	query, err := q.query()
	require.NoError(t, err)
	assert.EqualValues(t, 7, query.Filter.EventID)
	assert.Equal(t, "pix", query.Filter.Method)
	require.NotNil(t, query.Filter.From)
	require.NotNil(t, query.Filter.To)
	assert.EqualValues(t, 2, query.RateVersion)
	assert.Equal(t, 3, query.Page.Number)

	_, err = (&queryFlags{from: "march"}).query()
	assert.Error(t, err)
}
