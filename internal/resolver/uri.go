// Package resolver provides the concrete URI, JSON, and media
// resolvers consumed by the parse pipeline.
package resolver

import (
	"fmt"
	"regexp"
	"strings"
)

// ipfsScheme matches ipfs://{cid}[/path] references.
var ipfsScheme = regexp.MustCompile(`^ipfs://(?:ipfs/)?(.+)$`)

// URIResolver rewrites IPFS-style references to a configured gateway.
type URIResolver struct {
	gatewayPrefix string
}

// NewURIResolver creates a resolver targeting the given gateway prefix,
// e.g. "https://ipfs.io/ipfs/".
func NewURIResolver(gatewayPrefix string) *URIResolver {
	if gatewayPrefix != "" && !strings.HasSuffix(gatewayPrefix, "/") {
		gatewayPrefix += "/"
	}
	return &URIResolver{gatewayPrefix: gatewayPrefix}
}

// Resolve rewrites ipfs:// schemes and /ipfs/ gateway paths onto the
// configured gateway. URIs it cannot rewrite return an error; callers
// fall back to the raw input.
func (r *URIResolver) Resolve(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", fmt.Errorf("empty uri")
	}
	if m := ipfsScheme.FindStringSubmatch(uri); m != nil {
		return r.gatewayPrefix + m[1], nil
	}
	if idx := strings.Index(uri, "/ipfs/"); idx >= 0 {
		rest := uri[idx+len("/ipfs/"):]
		if rest == "" {
			return "", fmt.Errorf("ipfs path without cid: %s", uri)
		}
		return r.gatewayPrefix + rest, nil
	}
	return "", fmt.Errorf("not an ipfs uri: %s", uri)
}
