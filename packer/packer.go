// Package packer implements the serializer/compressor/encoder bundle that
// turns a task's positional and keyword arguments into the bytes that travel
// in a Celery protocol-2 envelope body, plus the content-type and
// content-encoding tokens the builder stamps onto the envelope.
package packer

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Serializer turns a task's positional/keyword arguments plus the fixed
// callbacks/chain/chord/errbacks trailer into bytes, and back.
type Serializer interface {
	// ContentType is the MIME token stamped on "content-type".
	ContentType() string
	Marshal(body [3]any) ([]byte, error)
	Unmarshal(data []byte, out *[3]any) error
}

// Compressor optionally shrinks serialized bytes.
type Compressor interface {
	// Label is the MIME token stamped on "headers.compression" when this
	// compressor is not Identity. Present only for non-identity compressors.
	Label() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Encoder renders compressed bytes as the body_encoding Celery expects.
type Encoder interface {
	// Name is the "properties.body_encoding" token.
	Name() string
	Encode(data []byte) (string, error)
	Decode(data string) ([]byte, error)
}

// Packer composes a Serializer, a Compressor, and an Encoder into the single
// pack/unpack step the task envelope builder calls.
type Packer struct {
	Serializer Serializer
	Compressor Compressor
	Encoder    Encoder
}

// CompressionLabel reports the MIME token for "headers.compression", and
// whether that header should be present at all (it is omitted for identity
// compression).
func (p Packer) CompressionLabel() (label string, present bool) {
	if _, ok := p.Compressor.(identityCompressor); ok {
		return "", false
	}
	return p.Compressor.Label(), true
}

// Pack serializes, compresses, and encodes body, returning the final string
// to place in the envelope's "body" field.
func (p Packer) Pack(body [3]any) (string, error) {
	raw, err := p.Serializer.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("packer: marshal: %w", err)
	}

	compressed, err := p.Compressor.Compress(raw)
	if err != nil {
		return "", fmt.Errorf("packer: compress: %w", err)
	}

	encoded, err := p.Encoder.Encode(compressed)
	if err != nil {
		return "", fmt.Errorf("packer: encode: %w", err)
	}
	return encoded, nil
}

// Unpack reverses Pack.
func (p Packer) Unpack(body string) ([3]any, error) {
	var out [3]any

	decoded, err := p.Encoder.Decode(body)
	if err != nil {
		return out, fmt.Errorf("packer: decode: %w", err)
	}

	raw, err := p.Compressor.Decompress(decoded)
	if err != nil {
		return out, fmt.Errorf("packer: decompress: %w", err)
	}

	if err := p.Serializer.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("packer: unmarshal: %w", err)
	}
	return out, nil
}

// --- serializers ---

// JSONSerializer implements Serializer over encoding/json.
type JSONSerializer struct{}

func (JSONSerializer) ContentType() string { return "application/json" }

func (JSONSerializer) Marshal(body [3]any) ([]byte, error) {
	return json.Marshal(body)
}

func (JSONSerializer) Unmarshal(data []byte, out *[3]any) error {
	return json.Unmarshal(data, out)
}

// YAMLSerializer implements Serializer over gopkg.in/yaml.v3.
type YAMLSerializer struct{}

func (YAMLSerializer) ContentType() string { return "application/x-yaml" }

func (YAMLSerializer) Marshal(body [3]any) ([]byte, error) {
	return yaml.Marshal(body)
}

func (YAMLSerializer) Unmarshal(data []byte, out *[3]any) error {
	return yaml.Unmarshal(data, out)
}

// --- compressors ---

type identityCompressor struct{}

func (identityCompressor) Label() string                     { return "" }
func (identityCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (identityCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// Identity is a no-op Compressor.
var Identity Compressor = identityCompressor{}

// zlibCompressor compresses with compress/zlib. Its Label is always
// "application/x-gzip": the gzip compression option is served by this same
// compressor, mirroring the Celery reference worker's quirk of labeling
// zlib-compressed bodies as gzip.
type zlibCompressor struct{}

func (zlibCompressor) Label() string { return "application/x-gzip" }

func (zlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zlibCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Zlib is the Compressor used for both the "zlib" and "gzip" compression
// options; see zlibCompressor's doc comment for the labeling quirk.
var Zlib Compressor = zlibCompressor{}

// --- encoders ---

type plainEncoder struct{}

func (plainEncoder) Name() string                     { return "utf-8" }
func (plainEncoder) Encode(data []byte) (string, error) { return string(data), nil }
func (plainEncoder) Decode(data string) ([]byte, error) { return []byte(data), nil }

// Plain passes bytes through as a UTF-8 string, used whenever compression is
// Identity.
var Plain Encoder = plainEncoder{}

type base64Encoder struct{}

func (base64Encoder) Name() string { return "base64" }

func (base64Encoder) Encode(data []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(data), nil
}

func (base64Encoder) Decode(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// Base64 is the Encoder used whenever compression is not Identity.
var Base64 Encoder = base64Encoder{}

// Serializer resolves a serializer name ("json" or "yaml") to its
// implementation.
func ForSerializer(name string) (Serializer, error) {
	switch name {
	case "json", "":
		return JSONSerializer{}, nil
	case "yaml":
		return YAMLSerializer{}, nil
	default:
		return nil, fmt.Errorf("packer: unknown serializer %q", name)
	}
}

// New builds a Packer for the given serializer and compression names,
// applying the gzip→zlib quirk and the identity/base64 encoder rule.
// compression must be one of "identity", "zlib", "gzip" (empty means
// identity).
func New(serializerName, compression string) (Packer, error) {
	ser, err := ForSerializer(serializerName)
	if err != nil {
		return Packer{}, err
	}

	switch compression {
	case "", "identity":
		return Packer{Serializer: ser, Compressor: Identity, Encoder: Plain}, nil
	case "zlib", "gzip":
		return Packer{Serializer: ser, Compressor: Zlib, Encoder: Base64}, nil
	default:
		return Packer{}, fmt.Errorf("packer: unknown compression %q", compression)
	}
}
