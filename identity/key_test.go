package identity

import (
	"testing"

	"listing_engine/models"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123 Main Street", "123 main st"},
		{"  123  MAIN st. ", "123 main st"},
		{"45 North Mill Road, Unit 2", "45 n mill rd unit 2"},
		{"9 Eastwood Drive", "9 eastwood dr"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeAddress(tt.in); got != tt.want {
				t.Fatalf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddressCityPrice_Key(t *testing.T) {
	k := AddressCityPrice{}

	a := &models.Listing{Address: "123 Main St", City: "Aspen", ListPrice: ptr(1250000.0)}
	b := &models.Listing{Address: "123 MAIN ST", City: "ASPEN", ListPrice: ptr(1250000.0)}
	if k.Key(a) != k.Key(b) {
		t.Fatalf("expected case-insensitive keys to match: %q vs %q", k.Key(a), k.Key(b))
	}
	if got := k.Key(a); got != "123 main st-aspen-1250000" {
		t.Fatalf("unexpected key %q", got)
	}

	c := &models.Listing{Address: "123 Main St", City: "Aspen", ListPrice: ptr(1200000.0)}
	if k.Key(a) == k.Key(c) {
		t.Fatalf("price change must produce a different key")
	}

	noPrice := &models.Listing{Address: "1 Elm", City: "Basalt"}
	if got := k.Key(noPrice); got != "1 elm-basalt-" {
		t.Fatalf("unexpected key for unpriced listing %q", got)
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(ptr(899000.5)); got != "899000.5" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPrice(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
