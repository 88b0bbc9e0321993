package env

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSetValue(t *testing.T) {
	t.Setenv("SCENTWATCH_TEST_FORMAT", "console")
	assert.Equal(t, "console", Get("SCENTWATCH_TEST_FORMAT", "json"))
}

func TestGetTrimsWhitespace(t *testing.T) {
	t.Setenv("SCENTWATCH_TEST_FORMAT", "  console \n")
	assert.Equal(t, "console", Get("SCENTWATCH_TEST_FORMAT", "json"))
}

func TestGetFallsBackWhenUnset(t *testing.T) {
	t.Setenv("SCENTWATCH_TEST_FORMAT", "placeholder")
	os.Unsetenv("SCENTWATCH_TEST_FORMAT")
	assert.Equal(t, "json", Get("SCENTWATCH_TEST_FORMAT", "json"))
}

func TestGetFallsBackWhenBlank(t *testing.T) {
	t.Setenv("SCENTWATCH_TEST_FORMAT", "   ")
	assert.Equal(t, "json", Get("SCENTWATCH_TEST_FORMAT", "json"))
}
