package patent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rowJSON(rows []map[string]any) []byte {
	b, _ := json.Marshal(rows)
	return b
}

func validRow(pub string) map[string]any {
	return map[string]any{
		"publication_number": pub,
		"title":              "Method for detecting anomalous network intrusions",
		"abstract":           "A system and method for detecting anomalous network traffic patterns indicative of intrusion attempts using statistical baselining of packet flows.",
		"filing_date":        "2026-01-01T00:00:00Z",
		"publication_date":   "2026-02-01T00:00:00Z",
		"assignees":          []string{"Acme Security Inc"},
		"inventors":          []string{"Jane Doe"},
		"cpc_codes":          []string{"H04L63/1416"},
		"country_code":       "US",
		"kind_code":          "A1",
	}
}

func TestFetchFiltersByCountryAndCPC(t *testing.T) {
	rows := []map[string]any{
		validRow("US001"),
		{ // wrong country
			"publication_number": "DE001", "title": "Method for detecting anomalous intrusions in networks",
			"abstract": "A system and method for detecting anomalous network traffic patterns indicative of intrusion attempts using statistical baselining of packet flows.",
			"filing_date": "2026-01-01T00:00:00Z", "publication_date": "2026-02-01T00:00:00Z",
			"assignees": []string{"Acme"}, "inventors": []string{"Jane"}, "cpc_codes": []string{"H04L63/1416"},
			"country_code": "DE", "kind_code": "A1",
		},
		{ // no matching CPC
			"publication_number": "US002", "title": "Method for brewing coffee with optimal temperature",
			"abstract": "A system and method for brewing coffee at an optimal temperature using a feedback control loop.",
			"filing_date": "2026-01-01T00:00:00Z", "publication_date": "2026-02-01T00:00:00Z",
			"assignees": []string{"Acme"}, "inventors": []string{"Jane"}, "cpc_codes": []string{"A47J31/00"},
			"country_code": "US", "kind_code": "A1",
		},
	}
	// pad with enough valid rows to avoid triggering the widen fallback
	for i := 0; i < 60; i++ {
		rows = append(rows, validRow("US-PAD-"+string(rune('A'+i%26))))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(rowJSON(rows))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil)
	patents, stats, err := c.Fetch(context.Background(), time.Now().Add(-7*24*time.Hour), time.Now())
	require.NoError(t, err)
	require.False(t, stats.Widened)
	for _, p := range patents {
		require.Equal(t, "US", p.Country)
	}
}

func TestFetchWidensOnLowYield(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Write(rowJSON([]map[string]any{validRow("US001")}))
			return
		}
		var rows []map[string]any
		for i := 0; i < 60; i++ {
			rows = append(rows, validRow("US-W-"+string(rune('A'+i%26))+string(rune('0'+i/26))))
		}
		w.Write(rowJSON(rows))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MinPatents: 50}, nil)
	patents, stats, err := c.Fetch(context.Background(), time.Now().Add(-7*24*time.Hour), time.Now())
	require.NoError(t, err)
	require.True(t, stats.Widened)
	require.NotEmpty(t, stats.OriginalStart)
	require.NotEmpty(t, stats.WidenedStart)
	require.Equal(t, 2, calls)
	require.Len(t, patents, 60)
}

func TestFetchPreservesOriginalStatsWhenWidenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.Write(rowJSON([]map[string]any{validRow("US001")}))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MinPatents: 50}, nil)
	patents, stats, err := c.Fetch(context.Background(), time.Now().Add(-7*24*time.Hour), time.Now())
	require.NoError(t, err)
	require.True(t, stats.Widened)
	require.NotEmpty(t, stats.OriginalStart)
	require.NotEmpty(t, stats.OriginalEnd)
	require.Len(t, patents, 1)
}

func TestFetchReturnsSourceErrorWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(rowJSON(nil))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MinPatents: 50}, nil)
	_, _, err := c.Fetch(context.Background(), time.Now().Add(-7*24*time.Hour), time.Now())
	require.Error(t, err)
}

func TestCPCGlobMatch(t *testing.T) {
	require.True(t, matchesSecurityCPC([]string{"H04L63/1416"}))
	require.True(t, matchesSecurityCPC([]string{"G06F21/55"}))
	require.False(t, matchesSecurityCPC([]string{"A47J31/00"}))
}
