package risk

import (
	"net/url"
	"strings"
)

// shieldRule is a coarse request-content firewall rule, independent of rate
// or identity. Matching is done on the lowercased, percent-decoded path and
// query string.
type shieldRule struct {
	name     string
	fragment string
}

var shieldRules = []shieldRule{
	{name: "path_traversal", fragment: "../"},
	{name: "path_traversal", fragment: "..\\"},
	{name: "sensitive_file", fragment: "etc/passwd"},
	{name: "sql_injection", fragment: " union select"},
	{name: "sql_injection", fragment: "' or '1'='1"},
	{name: "sql_injection", fragment: "; drop table"},
	{name: "sql_injection", fragment: "sleep("},
	{name: "script_injection", fragment: "<script"},
	{name: "script_injection", fragment: "javascript:"},
	{name: "template_injection", fragment: "${"},
}

// MatchShield returns the name of the first rule tripped by the request
// content, or "" when clean.
func MatchShield(path, rawQuery string) string {
	content := decodeLower(path)
	if rawQuery != "" {
		content += "?" + decodeLower(rawQuery)
	}

	for _, rule := range shieldRules {
		if strings.Contains(content, rule.fragment) {
			return rule.name
		}
	}

	return ""
}

func decodeLower(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		// undecodable input is matched as-is
		decoded = s
	}

	return strings.ToLower(decoded)
}
