package config

import (
	"net"
	"net/url"
)

// TranslateLoopback rewrites a loopback or unspecified host in rawURL to alias
// when inContainer is true. Inside a container "localhost" is the container
// itself, so services published on the host must be addressed by alias.
// Anything that is not a parseable absolute URL is returned unchanged.
func TranslateLoopback(rawURL string, inContainer bool, alias string) string {
	if rawURL == "" || !inContainer || alias == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	if !isLoopbackHost(u.Hostname()) {
		return rawURL
	}

	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(alias, port)
	} else {
		u.Host = alias
	}
	return u.String()
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}
