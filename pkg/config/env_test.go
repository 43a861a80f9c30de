package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("CFG_TEST_STRING", "value123")
	assert.Equal(t, "value123", GetEnv("CFG_TEST_STRING", "fallback"))

	t.Setenv("CFG_TEST_STRING", "   ")
	assert.Equal(t, "fallback", GetEnv("CFG_TEST_STRING", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("CFG_TEST_INT", 7))

	t.Setenv("CFG_TEST_INT", "not-a-number")
	assert.Equal(t, 7, GetEnvInt("CFG_TEST_INT", 7))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("CFG_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetEnvDuration("CFG_TEST_DURATION", time.Second))

	t.Setenv("CFG_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, GetEnvDuration("CFG_TEST_DURATION", time.Second))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"off", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("CFG_TEST_BOOL", tt.raw)
			assert.Equal(t, tt.want, GetEnvBool("CFG_TEST_BOOL", tt.def))
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("CFG_TEST_FLOAT", "12.5")
	assert.Equal(t, 12.5, GetEnvFloat("CFG_TEST_FLOAT", 1))

	t.Setenv("CFG_TEST_FLOAT", "fast")
	assert.Equal(t, 1.0, GetEnvFloat("CFG_TEST_FLOAT", 1))
}
