package slug

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Summer-Sale  ", "summer-sale"},
		{"ALL-CAPS", "all-caps"},
		{"already-clean", "already-clean"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Wireless Headphones", "wireless-headphones"},
		{"  Kids' Toys & Games  ", "kids-toys-games"},
		{"--edge--case--", "edge-case"},
		{"100% Cotton T-Shirt", "100-cotton-t-shirt"},
	}
	for _, c := range cases {
		if got := Generate(c.in); got != c.want {
			t.Fatalf("Generate(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}
