package cache

import "testing"

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: NoCache},
		{in: "no-cache", want: NoCache},
		{in: "cache-first", want: CacheFirst},
		{in: "Cache-First", want: CacheFirst},
		{in: " cache-and-network ", want: CacheAndNetwork},
		{in: "cacheandnetwork", want: CacheAndNetwork},
		{in: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPolicy_StringRoundTrip(t *testing.T) {
	for _, p := range []Policy{NoCache, CacheFirst, CacheAndNetwork} {
		got, err := ParsePolicy(p.String())
		if err != nil {
			t.Fatalf("ParsePolicy(%q) failed: %v", p.String(), err)
		}
		if got != p {
			t.Errorf("round trip of %v gave %v", p, got)
		}
	}

	if got := Policy(42).String(); got != "policy(42)" {
		t.Errorf("String() of unknown policy = %q", got)
	}
}

func TestPolicy_UnmarshalText(t *testing.T) {
	var p Policy
	if err := p.UnmarshalText([]byte("cache-first")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if p != CacheFirst {
		t.Errorf("UnmarshalText = %v, want %v", p, CacheFirst)
	}

	if err := p.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText should reject unknown policies")
	}
}
