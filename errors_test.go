package restmap_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/restmap"
)

func TestHydrationTypeError_TruncatesOnRuneBoundary(t *testing.T) {
	err := restmap.NewHydrationTypeError(strings.Repeat("é", 40), "int")
	msg := err.Error()
	assert.True(t, utf8.ValidString(msg), msg)
	assert.Equal(t, "Wrong type: expected int, got '"+strings.Repeat("é", 24), msg)

	short := restmap.NewHydrationTypeError("ok", "int")
	assert.Equal(t, "Wrong type: expected int, got 'ok'", short.Error())
}
