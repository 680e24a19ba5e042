// Package classify implements the two-tier classifier (C4): an
// oracle-first relevance/extraction pass with a deterministic heuristic
// fallback, sharing context-building, fingerprinting, and category
// normalization.
//
// The heuristic keyword sets, CPC prefix map, and scoring arithmetic in
// this file and relevance.go/extraction.go are ported from the reference
// implementation's logic/relevance_heuristics.py and
// logic/extraction_heuristics.py.
package classify

import (
	"sort"
	"strings"

	"github.com/ballistic-intel/signalpipe/internal/model"
)

// securityCPCPatterns maps a CPC code prefix to the category it implies.
var securityCPCPatterns = map[string]model.Category{
	"H04L9":     model.CategoryCryptography,
	"H04L63":    model.CategoryNetwork,
	"H04W12":    model.CategoryNetwork,
	"G06F21":    model.CategoryEndpoint,
	"H04L12/26": model.CategoryNetwork,
	"G06F11/30": model.CategoryVulnerability,
	"H04K":      model.CategoryCryptography,
	"G09C":      model.CategoryCryptography,
}

var highConfidenceKeywords = []string{
	"malware", "ransomware", "trojan", "botnet", "exploit",
	"vulnerability", "cve-", "zero-day", "zero day",
	"firewall", "intrusion detection", "intrusion prevention",
	"encryption", "decrypt", "cryptograph", "cipher",
	"authentication", "authorization", "iam", "sso", "mfa",
	"endpoint protection", "edr", "xdr", "siem", "soar",
	"penetration test", "red team", "blue team",
	"threat intelligence", "apt", "advanced persistent",
	"ddos", "denial of service", "dos attack",
	"phishing", "spear phishing", "social engineering",
	"data breach", "security breach", "cyber attack",
	"ransomware attack", "malicious code",
}

var mediumConfidenceKeywords = []string{
	"security", "cybersecurity", "cyber security",
	"breach", "attack", "threat", "risk",
	"compliance", "gdpr", "hipaa", "pci", "sox",
	"access control", "privilege", "permission",
	"audit", "monitoring", "detection",
	"vulnerability assessment", "security audit",
	"incident response", "forensic",
}

var categoryKeywords = map[model.Category][]string{
	model.CategoryCloud:         {"cloud security", "aws security", "azure security", "gcp security", "saas security", "serverless"},
	model.CategoryNetwork:       {"firewall", "ids", "ips", "ddos", "vpn", "network security", "perimeter"},
	model.CategoryEndpoint:      {"edr", "endpoint", "antivirus", "anti-virus", "device security", "mobile security"},
	model.CategoryIdentity:      {"iam", "identity", "authentication", "authorization", "sso", "mfa", "access management"},
	model.CategoryVulnerability: {"vulnerability", "cve", "exploit", "patch", "zero-day", "zero day"},
	model.CategoryMalware:       {"malware", "ransomware", "trojan", "worm", "virus", "botnet", "c2", "command and control"},
	model.CategoryData:         {"encryption", "dlp", "data loss", "privacy", "gdpr", "key management", "data protection"},
	model.CategoryGovernance:    {"compliance", "audit", "policy", "risk", "sox", "hipaa", "pci"},
	model.CategoryCryptography: {"cryptograph", "encryption", "decrypt", "cipher", "pki", "tls", "ssl", "hash"},
	model.CategoryApplication:  {"appsec", "application security", "sast", "dast", "waf", "api security"},
}

var negativeKeywords = []string{
	"marketing", "sales", "hr", "human resources",
	"e-commerce", "retail", "fashion", "food",
	"entertainment", "gaming", "social media",
}

// detectCategory chooses the category with the most keyword hits; ties
// are broken lexicographically over category names for determinism.
func detectCategory(text string) model.Category {
	best := model.CategoryUnknown
	bestCount := 0

	categories := make([]model.Category, 0, len(categoryKeywords))
	for cat := range categoryKeywords {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, cat := range categories {
		count := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = cat
		}
	}
	return best
}
