package services

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing_engine/models"
)

// URL keys seen across feeds; casing is inconsistent upstream.
var mediaURLKeys = []string{"MediaURL", "mediaURL", "MediaUrl", "mediaUrl", "media_url", "url", "URL", "Url", "uri"}

var mediaFormatKeys = []string{"format", "Format", "MediaFormat", "media_format"}

// ExtractMedia turns a preferred photo and a raw media value of unknown
// shape into an ordered photo list, video URLs and an optional virtual tour.
// Malformed items are skipped; the result is always well formed.
func ExtractMedia(preferred any, raw any) models.MediaSet {
	set := models.MediaSet{Photos: []string{}, VideoURLs: []string{}}
	seen := make(map[string]struct{})

	addPhoto := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		set.Photos = append(set.Photos, u)
	}

	if p, ok := preferred.(string); ok {
		if u := normalizeMediaURL(p); u != "" {
			addPhoto(u)
		}
	}

	for _, item := range mediaItems(raw) {
		value, format := mediaItem(item)
		kind := classifyFormat(format)
		if kind == mediaTour {
			if set.VirtualTourURL == nil {
				set.VirtualTourURL = TourURL(value)
			}
			continue
		}
		u := normalizeMediaURL(value)
		if u == "" {
			continue
		}
		if kind == mediaVideo {
			if !slices.Contains(set.VideoURLs, u) {
				set.VideoURLs = append(set.VideoURLs, u)
			}
			continue
		}
		addPhoto(u)
	}
	return set
}

// mediaItems unwraps the container into a list of items.
func mediaItems(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil
		}
		arr, _ := decoded.([]any)
		return arr
	case []byte:
		return mediaItems(string(v))
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out
	}
	return nil
}

// mediaItem returns the raw URL value and format tag of one item.
func mediaItem(item any) (string, string) {
	switch v := item.(type) {
	case map[string]any:
		return firstString(v, mediaURLKeys), firstString(v, mediaFormatKeys)
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "\"") {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err != nil {
				return "", ""
			}
			return mediaItem(decoded)
		}
		return s, ""
	}
	return "", ""
}

type mediaKind int

const (
	mediaPhoto mediaKind = iota
	mediaVideo
	mediaTour
)

func classifyFormat(format string) mediaKind {
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case f == "":
		return mediaPhoto
	case strings.Contains(f, "3d"), strings.Contains(f, "virtual"), strings.Contains(f, "tour"):
		return mediaTour
	case strings.Contains(f, "video"), f == "mp4", f == "youtube", f == "vimeo":
		return mediaVideo
	}
	return mediaPhoto
}

// normalizeMediaURL upgrades protocol-relative URLs and rejects anything
// that is not an absolute http(s) URL.
func normalizeMediaURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return ""
	}
	return u
}

// TourURL reads a virtual-tour field that may hold either a bare URL or an
// iframe embed snippet.
func TourURL(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err != nil {
			return nil
		}
		src, _ := doc.Find("iframe[src]").First().Attr("src")
		s = src
	}
	if u := normalizeMediaURL(s); u != "" {
		return &u
	}
	return nil
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
