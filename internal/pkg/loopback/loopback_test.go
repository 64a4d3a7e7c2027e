package loopback_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitepulse/internal/pkg/loopback"
)

func TestIsLocalHref(t *testing.T) {
	tests := []struct {
		href     string
		expected bool
	}{
		{"http://localhost:3000/pricing", true},
		{"http://LOCALHOST/", true},
		{"http://127.0.0.1/", true},
		{"http://127.1/", true},
		{"http://127.0.1/", true},
		{"http://[::1]:8080/", true},
		{"file:///Users/me/site/index.html", true},
		{"https://example.com/", false},
		{"https://localhost.example.com/", false},
		{"http://128.0.0.1/", false},
		{"", false},
		{"://broken", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.expected, loopback.IsLocalHref(tt.href))
		})
	}
}

func TestIsLocalHost(t *testing.T) {
	assert.True(t, loopback.IsLocalHost("localhost"))
	assert.True(t, loopback.IsLocalHost("::1"))
	assert.True(t, loopback.IsLocalHost("127.0.0.42"))
	assert.False(t, loopback.IsLocalHost("example.com"))
	assert.False(t, loopback.IsLocalHost("10.0.0.1"))
}
