package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Security Daily</title>
<item>
  <title>Acme Security raises $50 million in Series B funding</title>
  <link>https://example.com/acme-funding</link>
  <description>Acme Security announced a new funding round.</description>
  <pubDate>%s</pubDate>
  <guid>acme-1</guid>
</item>
<item>
  <title>Critical vulnerability found in widely used VPN software</title>
  <link>https://example.com/vpn-vuln</link>
  <description>Researchers disclosed a critical remote code execution flaw.</description>
  <pubDate>%s</pubDate>
  <guid>vpn-1</guid>
</item>
<item>
  <title></title>
  <link></link>
  <description>missing title and link, should be skipped</description>
  <pubDate>%s</pubDate>
  <guid>bad-1</guid>
</item>
</channel>
</rss>`

func TestFetchParsesFiltersAndDetectsFunding(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, sampleRSS, now, now, now)
	}))
	defer srv.Close()

	c := New(Config{Feeds: []Feed{{Name: "security-daily", URL: srv.URL}}}, nil)
	articles, err := c.Fetch(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	foundFunding := false
	for _, a := range articles {
		if a.Link == "https://example.com/acme-funding" {
			require.True(t, a.FundingHint)
			require.NotEmpty(t, a.FundingReason)
			foundFunding = true
		}
		if a.Link == "https://example.com/vpn-vuln" {
			require.False(t, a.FundingHint)
		}
	}
	require.True(t, foundFunding)
}

func TestFetchToleratesFailingFeed(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, sampleRSS, now, now, now)
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := New(Config{
		Feeds: []Feed{
			{Name: "good", URL: good.URL},
			{Name: "bad", URL: bad.URL},
		},
		MaxRetries: 1,
	}, nil)
	articles, err := c.Fetch(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, articles, 2)
}

func TestFetchReturnsErrorWhenAllFeedsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := New(Config{Feeds: []Feed{{Name: "bad", URL: bad.URL}}, MaxRetries: 1}, nil)
	_, err := c.Fetch(context.Background(), 30*24*time.Hour)
	require.Error(t, err)
}

func TestDetectFundingHint(t *testing.T) {
	ok, reason := detectFundingHint("Company closes $10 million Series A", "")
	require.True(t, ok)
	require.NotEmpty(t, reason)

	ok, _ = detectFundingHint("New ransomware strain targets healthcare sector", "")
	require.False(t, ok)
}
