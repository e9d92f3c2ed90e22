package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func parseString(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}

// params reads typed query values. Absent values stay nil; the first
// malformed value is kept in err.
type params struct {
	q   url.Values
	err error
}

func (p *params) fail(key, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q", key, raw)
	}
}

func (p *params) Float(key string) *float64 {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(key, raw)
		return nil
	}
	return &v
}

func (p *params) Int(key string) *int {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw)
		return nil
	}
	return &v
}

func (p *params) Bool(key string) bool {
	raw := strings.TrimSpace(p.q.Get(key))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw)
	}
	return v
}

// parseStringSlice accepts both repeated keys and comma-separated values.
func parseStringSlice(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// WriteJSONError writes {"error": message} with status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	RespondWithJSON(w, status, map[string]string{"error": message})
}

// RespondWithJSON writes payload as JSON with status.
func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}
