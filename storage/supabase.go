package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"listing_engine/config"
	"listing_engine/models"
)

// SecondaryStore reads the franchise-wide listing feed through Supabase's
// PostgREST interface.
type SecondaryStore struct {
	url        string
	serviceKey string
	table      string
	client     *http.Client
}

// NewSecondaryStore builds a store over client, or a plain client with a
// 30s timeout when client is nil.
func NewSecondaryStore(cfg *config.SupabaseConfig, client *http.Client) *SecondaryStore {
	table := cfg.Table
	if table == "" {
		table = "franchise_listings"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SecondaryStore{
		url:        cfg.URL,
		serviceKey: cfg.ServiceKey,
		table:      table,
		client:     client,
	}
}

// FindByMLSNumber returns the first row whose mls_numbers JSON array
// contains number, or nil when none does.
func (s *SecondaryStore) FindByMLSNumber(ctx context.Context, number string) (models.RawRow, error) {
	contains, err := json.Marshal([]string{number})
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("select", "*")
	params.Set("mls_numbers", "cs."+string(contains))
	params.Set("limit", "1")

	rows, err := s.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find by mls number: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindByAgentName returns every row listed under the agent display name.
func (s *SecondaryStore) FindByAgentName(ctx context.Context, name string) ([]models.RawRow, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("agent_name", "eq."+name)
	params.Set("order", "list_date.desc.nullslast")

	rows, err := s.get(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find by agent name: %w", err)
	}
	return rows, nil
}

func (s *SecondaryStore) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("limit", "1")
	_, err := s.get(ctx, params)
	return err
}

func (s *SecondaryStore) get(ctx context.Context, params url.Values) ([]models.RawRow, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.url, s.table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("supabase error %d: %s", resp.StatusCode, string(body))
	}

	var rows []models.RawRow
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}
