// Package model defines the persistent records written by the parser.
package model

// URIRecord is one row of crawl progress for a token metadata URI.
// TokenURI is the natural key; the raw URIs extracted from the metadata
// JSON are independent dedup keys for the image and animation stages.
// Retry counters only ever grow; an external scheduler reads them to
// decide when to re-publish a reference.
type URIRecord struct {
	TokenURI        string
	RawImageURI     *string
	RawAnimationURI *string

	CDNJSONURI      *string
	CDNImageURI     *string
	CDNAnimationURI *string

	JSONParserRetryCount         int
	ImageOptimizerRetryCount     int
	AnimationOptimizerRetryCount int
}

// NewURIRecord creates a fresh record for a token URI with no crawl
// progress recorded yet.
func NewURIRecord(tokenURI string) URIRecord {
	return URIRecord{TokenURI: tokenURI}
}

// RawImageOrToken returns the image dedup key: the raw image URI when
// the metadata JSON provided one, the token URI otherwise.
func (r URIRecord) RawImageOrToken() string {
	if r.RawImageURI != nil {
		return *r.RawImageURI
	}
	return r.TokenURI
}
