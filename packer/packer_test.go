package packer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(args, kwargs map[string]any) [3]any {
	return [3]any{
		[]any{},
		kwargs,
		map[string]any{"callbacks": nil, "chain": nil, "chord": nil, "errbacks": nil},
	}
}

func TestPacker_RoundtripJSONIdentity(t *testing.T) {
	p, err := New("json", "identity")
	require.NoError(t, err)

	in := body(nil, map[string]any{"x": float64(1)})
	packed, err := p.Pack(in)
	require.NoError(t, err)

	out, err := p.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPacker_RoundtripYAMLZlib(t *testing.T) {
	p, err := New("yaml", "zlib")
	require.NoError(t, err)

	in := body(nil, map[string]any{"y": "hello"})
	packed, err := p.Pack(in)
	require.NoError(t, err)

	out, err := p.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPacker_GzipOptionUsesZlibCompressorButGzipLabel(t *testing.T) {
	p, err := New("json", "gzip")
	require.NoError(t, err)

	assert.Equal(t, Zlib, p.Compressor)

	label, present := p.CompressionLabel()
	assert.True(t, present)
	assert.Equal(t, "application/x-gzip", label)

	// The bytes must actually be zlib, not gzip: unpacking through the
	// zlib compressor must succeed.
	in := body(nil, map[string]any{"z": 1.0})
	packed, err := p.Pack(in)
	require.NoError(t, err)
	_, err = p.Unpack(packed)
	require.NoError(t, err)
}

func TestPacker_IdentityCompressionOmitsHeader(t *testing.T) {
	p, err := New("json", "identity")
	require.NoError(t, err)

	_, present := p.CompressionLabel()
	assert.False(t, present)
	assert.Equal(t, "utf-8", p.Encoder.Name())
}

func TestPacker_NonIdentityUsesBase64Encoding(t *testing.T) {
	p, err := New("json", "zlib")
	require.NoError(t, err)
	assert.Equal(t, "base64", p.Encoder.Name())
}

func TestPacker_UnknownSerializerErrors(t *testing.T) {
	_, err := New("xml", "identity")
	assert.Error(t, err)
}

func TestPacker_UnknownCompressionErrors(t *testing.T) {
	_, err := New("json", "bz2")
	assert.Error(t, err)
}

func TestJSONSerializer_ContentType(t *testing.T) {
	assert.Equal(t, "application/json", JSONSerializer{}.ContentType())
}

func TestYAMLSerializer_ContentType(t *testing.T) {
	assert.Equal(t, "application/x-yaml", YAMLSerializer{}.ContentType())
}
