package services

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"listing_engine/identity"
	"listing_engine/logging"
	"listing_engine/models"
)

// Reconciler overlays secondary-source media onto primary listings and
// merges per-agent listing sets from both sources.
type Reconciler struct {
	secondary SecondarySource
	keyer     identity.Keyer
	limit     int
	log       *slog.Logger
}

// NewReconciler builds a reconciler. secondary may be nil, in which case
// every enrichment returns the primary listing unchanged. limit bounds
// concurrent secondary lookups in EnrichAll.
func NewReconciler(secondary SecondarySource, keyer identity.Keyer, limit int) *Reconciler {
	if keyer == nil {
		keyer = identity.AddressCityPrice{}
	}
	if limit < 1 {
		limit = 1
	}
	return &Reconciler{
		secondary: secondary,
		keyer:     keyer,
		limit:     limit,
		log:       logging.New("reconcile"),
	}
}

// Enrich returns l with media from its secondary-source match, if any.
// Missing configuration, lookup errors and no match all return l as is.
func (r *Reconciler) Enrich(ctx context.Context, l models.Listing) models.Listing {
	media := r.lookupMedia(ctx, l.MLSNumber)
	if media == nil {
		return l
	}
	OverlayMedia(&l, *media)
	return l
}

// lookupMedia fetches the secondary match for number and extracts its media.
func (r *Reconciler) lookupMedia(ctx context.Context, number string) *models.MediaSet {
	if r.secondary == nil || number == "" {
		return nil
	}
	row, err := r.secondary.FindByMLSNumber(ctx, number)
	if err != nil {
		r.log.Warn("secondary lookup failed", "mls", number, "error", err)
		return nil
	}
	if row == nil {
		return nil
	}
	media := SecondaryMedia(row)
	return &media
}

// EnrichAll enriches every listing with bounded concurrency, keeping order.
func (r *Reconciler) EnrichAll(ctx context.Context, listings []models.Listing) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	if r.secondary == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i := range out {
		i := i
		g.Go(func() error {
			out[i] = r.Enrich(gctx, out[i])
			return nil
		})
	}
	g.Wait()
	return out
}

// OverlayMedia replaces media fields of dst only where m supplies a value.
// Non-media fields are never touched.
func OverlayMedia(dst *models.Listing, m models.MediaSet) {
	if len(m.Photos) > 0 {
		dst.Photos = m.Photos
	}
	if m.VirtualTourURL != nil {
		dst.VirtualTourURL = m.VirtualTourURL
	}
	if len(m.VideoURLs) > 0 {
		dst.VideoURLs = m.VideoURLs
	}
}

// MergePortfolio merges one status bucket from both sources. Primary
// listings keep their order and take media from the first same-key
// secondary listing that has photos; unmatched secondary listings follow in
// their own order.
func (r *Reconciler) MergePortfolio(primary, secondary []models.Listing) []models.Listing {
	byKey := make(map[string]models.Listing, len(secondary))
	for _, s := range secondary {
		key := r.keyer.Key(&s)
		if cur, ok := byKey[key]; !ok || (len(cur.Photos) == 0 && len(s.Photos) > 0) {
			byKey[key] = s
		}
	}

	seen := make(map[string]struct{})
	out := make([]models.Listing, 0, len(primary)+len(secondary))
	for _, p := range primary {
		key := r.keyer.Key(&p)
		if s, ok := byKey[key]; ok && len(s.Photos) > 0 {
			OverlayMedia(&p, models.MediaSet{
				Photos:         s.Photos,
				VideoURLs:      s.VideoURLs,
				VirtualTourURL: s.VirtualTourURL,
			})
			seen[key] = struct{}{}
		}
		out = append(out, p)
	}
	for _, s := range secondary {
		key := r.keyer.Key(&s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DedupeRows drops rows whose listing number or normalized address was
// already seen in rows. The two keys are checked independently.
func DedupeRows(rows []models.RawRow) []models.RawRow {
	seenNumbers := make(map[string]struct{})
	seenAddresses := make(map[string]struct{})
	out := make([]models.RawRow, 0, len(rows))

	for _, row := range rows {
		number := asString(row["listing_id"])
		address := identity.NormalizeAddress(rowAddress(row))

		if number != "" {
			if _, ok := seenNumbers[number]; ok {
				continue
			}
		}
		if address != "" {
			if _, ok := seenAddresses[address]; ok {
				continue
			}
		}
		if number != "" {
			seenNumbers[number] = struct{}{}
		}
		if address != "" {
			seenAddresses[address] = struct{}{}
		}
		out = append(out, row)
	}
	return out
}

func rowAddress(row models.RawRow) string {
	if a := asString(row["address"]); a != "" {
		return a
	}
	return strings.TrimSpace(asString(row["street_number"]) + " " + asString(row["street_name"]))
}
