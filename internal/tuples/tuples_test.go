package tuples_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipinsights-workflow/internal/tuples"
	"ipinsights-workflow/pkg/models"
)

func TestParse(t *testing.T) {
	input := "user-1,10.0.0.5\nuser-2,10.0.0.9\nuser-1,203.0.113.44\n"

	records, err := tuples.Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []tuples.Record{
		{Principal: "user-1", IPAddress: "10.0.0.5"},
		{Principal: "user-2", IPAddress: "10.0.0.9"},
		{Principal: "user-1", IPAddress: "203.0.113.44"},
	}, records)
}

func TestParseRejectsWrongFieldCount(t *testing.T) {
	_, err := tuples.Parse(strings.NewReader("user-1,10.0.0.5,extra\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedData)
}

func TestParseRejectsInvalidIP(t *testing.T) {
	for _, row := range []string{
		"user-1,not-an-ip\n",
		"user-1,2001:db8::1\n",
		"user-1,\n",
		",10.0.0.5\n",
	} {
		_, err := tuples.Parse(strings.NewReader(row))
		require.Error(t, err, "row %q should be rejected", row)
		assert.ErrorIs(t, err, models.ErrMalformedData)
	}
}

func TestParseEmptyInput(t *testing.T) {
	records, err := tuples.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSerialize(t *testing.T) {
	records := []tuples.Record{
		{Principal: "user-1", IPAddress: "10.0.0.5"},
		{Principal: "user-2", IPAddress: "10.0.0.9"},
	}

	data, err := tuples.Serialize(records)
	require.NoError(t, err)

	assert.Equal(t, "user-1,10.0.0.5\nuser-2,10.0.0.9\n", string(data))
}

func TestSerializeRejectsInvalidRecord(t *testing.T) {
	_, err := tuples.Serialize([]tuples.Record{{Principal: "user-1", IPAddress: "bad"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedData)
}

func TestRoundTripPreservesOrderAndCount(t *testing.T) {
	records := []tuples.Record{
		{Principal: "user-3", IPAddress: "192.0.2.1"},
		{Principal: "user-1", IPAddress: "10.0.0.5"},
		{Principal: "user-1", IPAddress: "10.0.0.5"},
		{Principal: "user-2", IPAddress: "172.16.0.7"},
	}

	data, err := tuples.Serialize(records)
	require.NoError(t, err)

	parsed, err := tuples.Parse(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, parsed, len(records))
	assert.Equal(t, records, parsed)
}
