package sitename

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme Corp", want: "acmecorp.purpledove.net"},
		{in: "acme.com", want: "acme.purpledove.net"},
		{in: "acme.co.uk", want: "acme.purpledove.net"},
		{in: "  shop  ", want: "shop.purpledove.net"},
		{in: "already.purpledove.net", want: "already.purpledove.net"},
		{in: "MiXeD.NET", want: "mixed.purpledove.net"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in, DefaultSuffix); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"Acme Corp", "acme.com", "a-b-c", "x.co.uk", "plain"}
	for _, in := range inputs {
		once := Normalize(in, DefaultSuffix)
		twice := Normalize(once, DefaultSuffix)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "acmecorp.purpledove.net", want: true},
		{name: "a-1.purpledove.net", want: true},
		{name: "", want: false},
		{name: "ab", want: false},
		{name: "-bad.purpledove.net", want: false},
		{name: "bad-.purpledove.net", want: false},
		{name: "has space.purpledove.net", want: false},
		{name: "acme.example.com", want: false},
		{name: "nodotanywhere", want: false},
		{name: "x.purpledove.net", want: false}, // single-char label
	}

	for _, tt := range tests {
		if got := Validate(tt.name, DefaultSuffix); got != tt.want {
			t.Fatalf("Validate(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidateRejectsOverlongNames(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	if Validate(long+DefaultSuffix, DefaultSuffix) {
		t.Fatalf("expected name longer than 63 chars to be rejected")
	}
}
