package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		text     string
		expected time.Time
	}{
		{text: "03/14/2024", expected: time.Date(2024, time.March, 14, 0, 0, 0, 0, Location)},
		{text: "12/31/1999", expected: time.Date(1999, time.December, 31, 0, 0, 0, 0, Location)},
	}
	for _, test := range cases {
		parsed, err := ParseDate(test.text, Location)
		require.NoError(t, err)
		require.Equal(t, test.expected, parsed)
	}

	for _, text := range []string{"", "2024-03-14", "3/14/2024", "02/30/2024", "03/14/24"} {
		_, err := ParseDate(text, Location)
		require.Error(t, err, text)
	}
}

func TestLoad(t *testing.T) {
	loc, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Location, loc)

	loc, err = Load("UTC")
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)

	_, err = Load("Not/AZone")
	require.Error(t, err)
}
