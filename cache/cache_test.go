package cache

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		tag   string
		parts []string
		want  string
	}{
		{tag: "apod", parts: []string{"today"}, want: "apod:today"},
		{tag: "apod", parts: []string{"2024-01-01"}, want: "apod:2024-01-01"},
		{tag: "mars", parts: []string{"curiosity", "1000", "all"}, want: "mars:curiosity:1000:all"},
		{tag: "mars", parts: []string{"curiosity", "1000", "MAST"}, want: "mars:curiosity:1000:MAST"},
		{tag: "swpc", want: "swpc"},
	}
	for _, tt := range tests {
		if got := Key(tt.tag, tt.parts...); got != tt.want {
			t.Fatalf("Key(%q, %v) = %q, want %q", tt.tag, tt.parts, got, tt.want)
		}
	}
}

func TestKeyDistinctPerTuple(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range []string{
		Key("apod", "today"),
		Key("apod", "2024-01-01"),
		Key("mars", "curiosity", "1000", "all"),
		Key("mars", "curiosity", "1000", "MAST"),
		Key("mars", "opportunity", "1000", "all"),
	} {
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}
