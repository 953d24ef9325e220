package handlers

import (
	"regexp"
	"strings"
)

// hostPortRegex matches a host name or IPv4 address with an optional port,
// which is what the redirect handler puts in the domain parameter.
var hostPortRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-_.]*[a-zA-Z0-9])?(:[0-9]{1,5})?$`)

// blockedDomain validates the domain query parameter of the block page.
func blockedDomain(raw string) (string, bool) {
	d := strings.TrimSpace(raw)
	if d == "" || len(d) > 259 {
		return "", false
	}
	if !hostPortRegex.MatchString(d) {
		return "", false
	}
	return d, true
}
