package framestore

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec compresses raw pixel payloads for storage
type Codec interface {
	// Name identifies the codec in the manifest and selects the file extension
	Name() string
	Extension() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ZstdCodec compresses with Zstandard
type ZstdCodec struct{}

func (ZstdCodec) Name() string      { return "zstd" }
func (ZstdCodec) Extension() string { return "zst" }

func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// SnappyCodec uses the snappy framing format
type SnappyCodec struct{}

func (SnappyCodec) Name() string      { return "snappy" }
func (SnappyCodec) Extension() string { return "sz" }

func (SnappyCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (SnappyCodec) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
}

// CodecByName returns the codec registered under name
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "zstd", "zst":
		return ZstdCodec{}, nil
	case "snappy", "sz":
		return SnappyCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
