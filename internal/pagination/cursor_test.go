package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

	encoded := EncodeCursor("item-42", ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "item-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_FirstPage(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := map[string]string{
		"not base64":        "%%%",
		"missing separator": base64.StdEncoding.EncodeToString([]byte("no-separator")),
		"bad timestamp":     base64.StdEncoding.EncodeToString([]byte("id|yesterday")),
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(input)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}
