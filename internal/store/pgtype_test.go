package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPgTypeHelpers(t *testing.T) {
	assert.False(t, toPgText("").Valid)
	assert.Equal(t, "x", fromPgText(toPgText("x")))

	assert.False(t, toPgFloat8(nil).Valid)
	v := 2.5
	assert.Equal(t, 2.5, *fromPgFloat8(toPgFloat8(&v)))
	assert.Nil(t, fromPgFloat8(toPgFloat8(nil)))

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, fromPgDate(toPgDate(&day)).Equal(day))
	assert.Nil(t, fromPgDate(toPgDate(nil)))

	id := newID()
	assert.Equal(t, id, uuidToString(toPgUUID(id)))
	assert.False(t, toPgUUID("not-a-uuid").Valid)
	assert.Equal(t, "", uuidToString(toPgUUID("")))

	assert.False(t, toPgTimestamptz(time.Time{}).Valid)
	assert.Equal(t, []string{}, nonNil(nil))
}
