package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// noProxy is a comma-separated list of hosts (or domain suffixes) that
// bypass the proxy.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	skip := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if hostBypassed(req.URL.Hostname(), skip) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// hostBypassed matches the host against no-proxy entries: "*" matches
// everything, a leading dot matches the domain and its subdomains, a bare
// entry matches the host exactly or as a parent domain.
func hostBypassed(host string, skip []string) bool {
	host = strings.ToLower(host)
	for _, entry := range skip {
		if entry == "*" {
			return true
		}
		entry = strings.TrimPrefix(entry, ".")
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
