package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)
	id := uuid.New()

	encoded := EncodeCursor(Cursor{CreatedAt: created, ID: id})
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "/")

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(created))
	assert.Equal(t, id, decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("%%%")
	assert.Error(t, err)

	_, err = ParseCursor(EncodeCursor(Cursor{CreatedAt: time.Now(), ID: uuid.Nil})[:4])
	assert.Error(t, err)
}
