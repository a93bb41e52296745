package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURIResolver_Resolve(t *testing.T) {
	t.Parallel()

	r := NewURIResolver("https://gateway.example.com/ipfs/")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "ipfs scheme",
			in:   "ipfs://QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU/hello.json",
			want: "https://gateway.example.com/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU/hello.json",
		},
		{
			name: "ipfs scheme with redundant path prefix",
			in:   "ipfs://ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU",
			want: "https://gateway.example.com/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU",
		},
		{
			name: "foreign gateway url",
			in:   "https://other-gateway.io/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU",
			want: "https://gateway.example.com/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU",
		},
		{
			name: "surrounding whitespace",
			in:   "  ipfs://QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU  ",
			want: "https://gateway.example.com/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURIResolver_ResolveErrors(t *testing.T) {
	t.Parallel()

	r := NewURIResolver("https://gateway.example.com/ipfs/")

	for _, in := range []string{
		"",
		"https://example.com/metadata.json",
		"https://example.com/ipfs/",
	} {
		_, err := r.Resolve(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNewURIResolver_NormalizesPrefix(t *testing.T) {
	t.Parallel()

	r := NewURIResolver("https://gateway.example.com/ipfs")
	got, err := r.Resolve("ipfs://QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/ipfs/QmYx6GsYAKnNzZ9A6NvEKV9nf1VaDzJrqDR23Y8YSkebLU", got)
}
