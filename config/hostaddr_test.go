package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateLoopback(t *testing.T) {
	const alias = "host.docker.internal"

	tests := []struct {
		name        string
		rawURL      string
		inContainer bool
		want        string
	}{
		{"localhost with port", "http://localhost:11434/v1", true, "http://host.docker.internal:11434/v1"},
		{"ipv4 loopback", "http://127.0.0.1:8080", true, "http://host.docker.internal:8080"},
		{"ipv6 loopback", "http://[::1]:8080/v1", true, "http://host.docker.internal:8080/v1"},
		{"unspecified address", "http://0.0.0.0:11434", true, "http://host.docker.internal:11434"},
		{"no port", "https://localhost/v1", true, "https://host.docker.internal/v1"},
		{"remote host untouched", "https://api.openai.com/v1", true, "https://api.openai.com/v1"},
		{"outside container untouched", "http://localhost:11434/v1", false, "http://localhost:11434/v1"},
		{"empty", "", true, ""},
		{"not a url", "localhost", true, "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateLoopback(tt.rawURL, tt.inContainer, alias))
		})
	}
}

func TestTranslateLoopback_EmptyAlias(t *testing.T) {
	assert.Equal(t, "http://localhost:1", TranslateLoopback("http://localhost:1", true, ""))
}
