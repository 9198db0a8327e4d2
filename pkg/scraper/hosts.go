package scraper

import (
	"net"
	"strings"
)

var metadataHosts = []string{
	"metadata",
	"metadata.google.internal",
}

// AllowPublicHost rejects cloud metadata names and link-local, unspecified
// or multicast IP literals. Hostnames are not resolved.
func AllowPublicHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, h := range metadataHosts {
		if host == h {
			return false
		}
	}

	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil {
		return true
	}
	return !(ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsMulticast())
}
