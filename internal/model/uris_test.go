package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewURIRecord(t *testing.T) {
	t.Parallel()

	rec := NewURIRecord("ipfs://abc")
	assert.Equal(t, "ipfs://abc", rec.TokenURI)
	assert.Nil(t, rec.RawImageURI)
	assert.Zero(t, rec.JSONParserRetryCount)
}

func TestRawImageOrToken(t *testing.T) {
	t.Parallel()

	rec := NewURIRecord("ipfs://abc")
	assert.Equal(t, "ipfs://abc", rec.RawImageOrToken())

	img := "ipfs://img1"
	rec.RawImageURI = &img
	assert.Equal(t, "ipfs://img1", rec.RawImageOrToken())
}
