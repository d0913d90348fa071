package config

import "testing"

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "client_id: ${CLIENT_ID}",
			env:   map[string]string{"CLIENT_ID": "abc123"},
			want:  "client_id: abc123",
		},
		{
			name:  "missing variable with default",
			input: "http_addr: ${HTTP_ADDR:-:8080}",
			env:   map[string]string{},
			want:  "http_addr: :8080",
		},
		{
			name:  "set variable overrides default",
			input: "http_addr: ${HTTP_ADDR:-:8080}",
			env:   map[string]string{"HTTP_ADDR": ":9090"},
			want:  "http_addr: :9090",
		},
		{
			name:  "missing variable with no default expands empty",
			input: "secret: ${MISSING}",
			env:   map[string]string{},
			want:  "secret: ",
		},
		{
			name:  "bare dollar syntax also expands",
			input: "host: $DB_HOST",
			env:   map[string]string{"DB_HOST": "localhost"},
			want:  "host: localhost",
		},
		{
			name:  "no variables, unchanged",
			input: "static: value",
			env:   map[string]string{},
			want:  "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got := string(ExpandEnv([]byte(tt.input)))
			if got != tt.want {
				t.Fatalf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
