package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: `api_key = "${API_KEY}"`,
			env:   map[string]string{"API_KEY": "secret123"},
			want:  `api_key = "secret123"`,
		},
		{
			name:  "bare dollar substitution",
			input: "endpoint = $ENDPOINT",
			env:   map[string]string{"ENDPOINT": "http://localhost:4096"},
			want:  "endpoint = http://localhost:4096",
		},
		{
			name:  "missing variable expands to empty string",
			input: "token = ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "token = ",
		},
		{
			name:  "multiple variables on one line",
			input: "url = \"${PROTOCOL}://${HOST}:${PORT}\"",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "example.com",
				"PORT":     "443",
			},
			want: `url = "https://example.com:443"`,
		},
		{
			name:  "no substitution when no variables present",
			input: "name = \"my-project\"",
			env:   map[string]string{"UNUSED": "value"},
			want:  "name = \"my-project\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}
