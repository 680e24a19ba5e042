// Package model defines the domain types shared across every pipeline
// component: the two document variants (Patent, Article), the two
// classifier outputs (RelevanceResult, ExtractionResult), and the two
// entity-resolution outputs (ResolvedEntity, AliasLink).
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category is a member of the closed category set that every relevance
// and extraction result is normalized into.
type Category string

const (
	CategoryCloud          Category = "cloud"
	CategoryNetwork        Category = "network"
	CategoryEndpoint       Category = "endpoint"
	CategoryIdentity       Category = "identity"
	CategoryVulnerability  Category = "vulnerability"
	CategoryMalware        Category = "malware"
	CategoryData           Category = "data"
	CategoryGovernance     Category = "governance"
	CategoryCryptography   Category = "cryptography"
	CategoryApplication    Category = "application"
	CategoryIoT            Category = "iot"
	CategoryUnknown        Category = "unknown"
)

// Categories is the closed set; any free-form category string not found
// here collapses to CategoryUnknown.
var Categories = map[Category]bool{
	CategoryCloud:         true,
	CategoryNetwork:       true,
	CategoryEndpoint:      true,
	CategoryIdentity:      true,
	CategoryVulnerability: true,
	CategoryMalware:       true,
	CategoryData:          true,
	CategoryGovernance:    true,
	CategoryCryptography:  true,
	CategoryApplication:   true,
	CategoryIoT:           true,
	CategoryUnknown:       true,
}

// NormalizeCategory projects a free-form string into the closed Categories
// set via exact case-insensitive match, falling back to CategoryUnknown.
func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if Categories[c] {
		return c
	}
	return CategoryUnknown
}

// Patent is a single patent record from the document warehouse. Invariant
// P-valid (non-empty id, title >= 10 chars, abstract >= 50 chars, at least
// one CPC code) is enforced by the source adapter, not by this type.
type Patent struct {
	PublicationNumber string
	Title             string
	Abstract          string
	FilingDate        time.Time
	PublicationDate   time.Time
	Assignees         []string
	Inventors         []string
	CPCCodes          []string
	Country           string
	KindCode          string
}

// IsValidMinimal checks invariant P-valid.
func (p Patent) IsValidMinimal() bool {
	return p.PublicationNumber != "" &&
		len(p.Title) >= 10 &&
		len(p.Abstract) >= 50 &&
		len(p.CPCCodes) >= 1
}

// Article is a single news article pulled from an RSS/Atom feed.
type Article struct {
	ID            string
	Source        string
	Title         string
	Link          string
	PublishedAt   time.Time
	Summary       string
	FullContent   string
	Categories    []string
	FundingHint   bool
	FundingReason string
	Raw           map[string]string // diagnostics only, never persisted
}

// ArticleID computes the stable 16-hex digest of source:link.
func ArticleID(source, link string) string {
	sum := sha256.Sum256([]byte(source + ":" + link))
	return hex.EncodeToString(sum[:])[:16]
}

// IsValidMinimal checks invariant A-valid against a lookback window start.
func (a Article) IsValidMinimal(windowStart time.Time) bool {
	return a.Title != "" && a.Link != "" && !a.PublishedAt.Before(windowStart)
}

// RelevanceResult is the output of the relevance tier of the two-tier
// classifier (C4), for either a Patent or an Article.
type RelevanceResult struct {
	ItemID        string
	SourceType    string // "patent" | "news"
	Model         string
	ModelVersion  string
	Timestamp     time.Time
	IsRelevant    bool
	Score         float64
	Category      Category
	Reasons       []string
	Fingerprint   string
}

// ClampScore clamps s into [0,1].
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ExtractionResult is the output of the extraction tier (C4).
type ExtractionResult struct {
	ItemID       string
	SourceType   string
	Model        string
	ModelVersion string
	Timestamp    time.Time
	CompanyNames []string
	Sector       Category
	NoveltyScore float64
	TechKeywords []string
	Rationale    []string
	Fingerprint  string
}

// ResolvedEntity is one canonical entity produced by the entity resolver
// (C6). EntityID is a deterministic function of CanonicalName alone.
type ResolvedEntity struct {
	EntityID      string
	CanonicalName string
	Aliases       []string
	Sources       []string
	Confidence    float64
	CreatedAt     time.Time
}

// AliasLink maps one raw company name string to the entity it resolved
// into.
type AliasLink struct {
	RawName       string
	CanonicalName string
	EntityID      string
	Score         float64
	RulesApplied  []string
}

// EntityID computes the deterministic entity id: first 16 hex of
// SHA-256 over the lowercased canonical name.
func EntityID(canonicalName string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(canonicalName)))
	return hex.EncodeToString(sum[:])[:16]
}

// Fingerprint computes the first 16 hex of SHA-256 over a context string,
// used to key the classifier cache (C3).
func Fingerprint(context string) string {
	sum := sha256.Sum256([]byte(context))
	return hex.EncodeToString(sum[:])[:16]
}
