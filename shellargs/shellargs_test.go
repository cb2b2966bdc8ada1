package shellargs

import (
	"reflect"
	"testing"
)

func TestStringify(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{
			name:   "Plain tokens pass through",
			tokens: []string{"echo", "hi"},
			want:   "echo hi",
		},
		{
			name:   "Token with space is quoted",
			tokens: []string{"/bin/bash", "-c", "echo hi"},
			want:   "/bin/bash -c 'echo hi'",
		},
		{
			name:   "Empty token survives",
			tokens: []string{"printf", ""},
			want:   "printf ''",
		},
		{
			name:   "Single token",
			tokens: []string{"true"},
			want:   "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.tokens); got != tt.want {
				t.Errorf("Stringify(%v) = %q, want %q", tt.tokens, got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{
			name: "Plain words",
			line: "echo hi",
			want: []string{"echo", "hi"},
		},
		{
			name: "Single-quoted argument",
			line: "/bin/bash -c 'echo hi'",
			want: []string{"/bin/bash", "-c", "echo hi"},
		},
		{
			name:    "Unterminated quote errors",
			line:    "echo 'oops",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Split(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

// The round-trip contract the executors rely on: for token vectors free of
// whitespace, quotes and metacharacters, splitting the stringified line
// returns the original tokens.
func TestRoundTrip(t *testing.T) {
	vectors := [][]string{
		{"echo", "hi"},
		{"sudo", "-u", "alice", "whoami"},
		{"ls", "-la", "/var/log"},
		{"ip", "addr", "show", "dev", "eth0"},
	}

	for _, tokens := range vectors {
		got, err := Split(Stringify(tokens))
		if err != nil {
			t.Fatalf("Split(Stringify(%v)) failed: %v", tokens, err)
		}
		if !reflect.DeepEqual(got, tokens) {
			t.Errorf("round trip of %v produced %v", tokens, got)
		}
	}
}
