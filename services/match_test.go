package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"listing_engine/identity"
	"listing_engine/models"
)

func TestEnrich_OverlaysSecondaryMedia(t *testing.T) {
	secondary := &fakeSecondary{byMLS: map[string]models.RawRow{
		"98765": {
			"media":            []any{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"},
			"virtual_tour_url": "https://tour.example.com/x",
			"address":          "should not leak",
		},
	}}
	r := NewReconciler(secondary, nil, 4)

	in := models.Listing{MLSNumber: "98765", Address: "123 Main St", Photos: []string{"a"}, VideoURLs: []string{"v"}}
	got := r.Enrich(context.Background(), in)

	if diff := cmp.Diff([]string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}, got.Photos); diff != "" {
		t.Fatalf("photos mismatch (-want +got):\n%s", diff)
	}
	if got.VirtualTourURL == nil || *got.VirtualTourURL != "https://tour.example.com/x" {
		t.Fatalf("expected tour overlay, got %v", got.VirtualTourURL)
	}
	if diff := cmp.Diff([]string{"v"}, got.VideoURLs); diff != "" {
		t.Fatalf("videos must survive empty secondary list (-want +got):\n%s", diff)
	}
	if got.Address != "123 Main St" {
		t.Fatalf("non-media field changed: %q", got.Address)
	}
}

func TestEnrich_EmptySecondaryPhotosKeepPrimary(t *testing.T) {
	secondary := &fakeSecondary{byMLS: map[string]models.RawRow{"1": {"media": "[]"}}}
	r := NewReconciler(secondary, nil, 1)

	got := r.Enrich(context.Background(), models.Listing{MLSNumber: "1", Photos: []string{"a"}})
	if diff := cmp.Diff([]string{"a"}, got.Photos); diff != "" {
		t.Fatalf("photos mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrich_Degrades(t *testing.T) {
	in := models.Listing{MLSNumber: "1", Photos: []string{"a"}}
	tests := []struct {
		name string
		r    *Reconciler
	}{
		{"no secondary", NewReconciler(nil, nil, 1)},
		{"lookup error", NewReconciler(&fakeSecondary{err: errUpstream}, nil, 1)},
		{"no match", NewReconciler(&fakeSecondary{}, nil, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Enrich(context.Background(), in)
			if diff := cmp.Diff(in, got); diff != "" {
				t.Fatalf("listing changed (-want +got):\n%s", diff)
			}
		})
	}

	secondary := &fakeSecondary{}
	NewReconciler(secondary, nil, 1).Enrich(context.Background(), models.Listing{})
	if secondary.lookups != 0 {
		t.Fatalf("expected no lookup without mls number")
	}
}

func TestEnrichAll_BoundedAndOrdered(t *testing.T) {
	byMLS := map[string]models.RawRow{}
	var in []models.Listing
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		byMLS[n] = models.RawRow{"media": []any{"https://cdn.example.com/" + n + ".jpg"}}
		in = append(in, models.Listing{MLSNumber: n})
	}
	secondary := &fakeSecondary{byMLS: byMLS, delay: 5 * time.Millisecond}
	r := NewReconciler(secondary, nil, 3)

	got := r.EnrichAll(context.Background(), in)

	if len(got) != len(in) {
		t.Fatalf("expected %d listings, got %d", len(in), len(got))
	}
	for i, l := range got {
		want := "https://cdn.example.com/" + in[i].MLSNumber + ".jpg"
		if len(l.Photos) != 1 || l.Photos[0] != want {
			t.Fatalf("listing %d: expected %s, got %v", i, want, l.Photos)
		}
	}
	if secondary.maxSeen > 3 {
		t.Fatalf("concurrency limit exceeded: %d in flight", secondary.maxSeen)
	}
	if in[0].Photos != nil {
		t.Fatalf("input slice must not be mutated")
	}
}

func listing(address, city string, price float64, photos ...string) models.Listing {
	return models.Listing{Address: address, City: city, ListPrice: ptr(price), Photos: photos}
}

func TestMergePortfolio_OrderAndEnrichment(t *testing.T) {
	r := NewReconciler(nil, identity.AddressCityPrice{}, 1)

	primary := []models.Listing{
		listing("1 Elm", "Aspen", 100, "p1"),
		listing("2 Oak", "Aspen", 200, "p2"),
	}
	secondary := []models.Listing{
		listing("9 Pine", "Basalt", 900, "s9"),
		listing("1 ELM", "ASPEN", 100, "s1a", "s1b"),
		listing("3 Ash", "Aspen", 300),
	}
	for i := range secondary {
		secondary[i].Source = models.SourceSecondary
	}

	got := r.MergePortfolio(primary, secondary)

	var addresses []string
	for _, l := range got {
		addresses = append(addresses, l.Address)
	}
	if diff := cmp.Diff([]string{"1 Elm", "2 Oak", "9 Pine", "3 Ash"}, addresses); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"s1a", "s1b"}, got[0].Photos); diff != "" {
		t.Fatalf("expected enriched photos (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2"}, got[1].Photos); diff != "" {
		t.Fatalf("unmatched primary changed (-want +got):\n%s", diff)
	}
}

func TestMergePortfolio_PhotolessMatchIsNotSeen(t *testing.T) {
	r := NewReconciler(nil, nil, 1)
	primary := []models.Listing{listing("1 Elm", "Aspen", 100, "p1")}
	secondary := []models.Listing{listing("1 Elm", "Aspen", 100)}

	got := r.MergePortfolio(primary, secondary)
	if len(got) != 2 {
		t.Fatalf("expected photoless secondary to be kept as its own entry, got %d", len(got))
	}
	if diff := cmp.Diff([]string{"p1"}, got[0].Photos); diff != "" {
		t.Fatalf("primary photos changed (-want +got):\n%s", diff)
	}
}

func TestMergePortfolio_LaterSecondaryWithPhotosWins(t *testing.T) {
	r := NewReconciler(nil, nil, 1)
	primary := []models.Listing{listing("1 Elm", "Aspen", 100, "p1")}
	secondary := []models.Listing{
		listing("1 Elm", "Aspen", 100),
		listing("1 Elm", "Aspen", 100, "s1"),
		listing("1 Elm", "Aspen", 100, "s2"),
	}

	got := r.MergePortfolio(primary, secondary)
	if len(got) != 1 {
		t.Fatalf("expected matched secondaries to fold into the primary, got %d listings", len(got))
	}
	if diff := cmp.Diff([]string{"s1"}, got[0].Photos); diff != "" {
		t.Fatalf("expected first photo-bearing secondary media (-want +got):\n%s", diff)
	}
}

func TestMergePortfolio_ReorderInvariant(t *testing.T) {
	r := NewReconciler(nil, nil, 1)
	keyer := identity.AddressCityPrice{}

	primary := []models.Listing{
		listing("1 Elm", "Aspen", 100, "p1"),
		listing("2 Oak", "Aspen", 200, "p2"),
		listing("4 Fir", "Basalt", 400),
	}
	secondary := []models.Listing{
		listing("1 Elm", "Aspen", 100, "s1"),
		listing("5 Yew", "Aspen", 500, "s5"),
		listing("4 Fir", "Basalt", 400, "s4"),
		listing("6 Bay", "Carbondale", 600),
	}

	outcome := func(ls []models.Listing) map[string][]string {
		m := make(map[string][]string, len(ls))
		for _, l := range ls {
			m[keyer.Key(&l)] = l.Photos
		}
		return m
	}

	base := r.MergePortfolio(primary, secondary)
	want := outcome(base)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		p := append([]models.Listing(nil), primary...)
		s := append([]models.Listing(nil), secondary...)
		rng.Shuffle(len(p), func(a, b int) { p[a], p[b] = p[b], p[a] })
		rng.Shuffle(len(s), func(a, b int) { s[a], s[b] = s[b], s[a] })

		got := r.MergePortfolio(p, s)
		if len(got) != len(base) {
			t.Fatalf("cardinality changed: %d vs %d", len(got), len(base))
		}
		if diff := cmp.Diff(want, outcome(got)); diff != "" {
			t.Fatalf("outcome changed under reorder (-want +got):\n%s", diff)
		}
	}
}

func TestDedupeRows(t *testing.T) {
	rows := []models.RawRow{
		{"listing_id": "1", "address": "123 Main Street"},
		{"listing_id": "1", "address": "999 Other Rd"},
		{"listing_id": "2", "address": "123 main st."},
		{"listing_id": "3", "address": ""},
		{"listing_id": "", "street_number": "7", "street_name": "Elm Lane"},
		{"listing_id": "", "address": "7 elm ln"},
		{"listing_id": "", "address": ""},
		{"listing_id": "", "address": ""},
	}

	got := DedupeRows(rows)

	var ids []string
	for _, r := range got {
		ids = append(ids, asString(r["listing_id"])+"|"+rowAddress(r))
	}
	want := []string{"1|123 Main Street", "3|", "|7 Elm Lane", "|", "|"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("dedupe mismatch (-want +got):\n%s", diff)
	}
}
