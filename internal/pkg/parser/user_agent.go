package parser

import "strings"

type rule struct {
	needle  string
	exclude string
	name    string
}

// Order matters: iOS and Android user agents also mention "mac os" and "linux".
var osRules = []rule{
	{needle: "iphone", name: "iOS"},
	{needle: "ipad", name: "iOS"},
	{needle: "android", name: "Android"},
	{needle: "windows", name: "Windows"},
	{needle: "mac os", name: "macOS"},
	{needle: "linux", name: "Linux"},
}

// Edge and Opera also announce Chrome, Chrome announces Safari.
var browserRules = []rule{
	{needle: "edg", name: "Edge"},
	{needle: "opr/", name: "Opera"},
	{needle: "firefox", name: "Firefox"},
	{needle: "chrome", name: "Chrome"},
	{needle: "safari", exclude: "chrome", name: "Safari"},
	{needle: "curl/", name: "curl"},
}

// ParseUserAgent returns a coarse OS and browser name for activity logs.
func ParseUserAgent(ua string) (os, browser string) {
	ua = strings.ToLower(ua)
	return match(ua, osRules), match(ua, browserRules)
}

func match(ua string, rules []rule) string {
	for _, r := range rules {
		if strings.Contains(ua, r.needle) && (r.exclude == "" || !strings.Contains(ua, r.exclude)) {
			return r.name
		}
	}
	return "Unknown"
}
