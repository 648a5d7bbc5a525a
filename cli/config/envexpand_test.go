package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("CODESTORY_TEST_KEY", "sk-live")
	t.Setenv("CODESTORY_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "api_key: ${CODESTORY_TEST_KEY}", "api_key: sk-live"},
		{"unset var", "api_key: ${CODESTORY_UNSET_12345}", "api_key: "},
		{"default when unset", "model: ${CODESTORY_UNSET_12345:-gpt-4.1-mini}", "model: gpt-4.1-mini"},
		{"default ignored when set", "api_key: ${CODESTORY_TEST_KEY:-fallback}", "api_key: sk-live"},
		{"default when empty", "api_key: ${CODESTORY_TEST_EMPTY:-fallback}", "api_key: fallback"},
		{"multiple", "${CODESTORY_TEST_KEY}/${CODESTORY_UNSET_12345:-x}", "sk-live/x"},
		{"no pattern", "listen: :8080", "listen: :8080"},
		{"bare dollar untouched", "price: $5", "price: $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
