// Package persist provides codecs for stored state and helpers to write
// encoded values to byte slices and files.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	lz4Extension  = ".lz4"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	err := json.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// LZ4Codec compresses the output of Inner with the LZ4 frame format.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec wraps inner with LZ4 compression.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{Inner: inner}
}

// Encode implements Codec.Encode.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := c.Inner.Encode(zw, state)
	if err != nil {
		return err
	}

	closeErr := zw.Close()
	if closeErr != nil {
		return fmt.Errorf("lz4 close: %w", closeErr)
	}

	return nil
}

// Decode implements Codec.Decode.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	return c.Inner.Decode(lz4.NewReader(r), state)
}

// Extension implements Codec.Extension, e.g. ".json.lz4".
func (c *LZ4Codec) Extension() string {
	return c.Inner.Extension() + lz4Extension
}

// CodecFor picks the codec matching the extension of path: LZ4-compressed
// JSON for ".lz4", plain indented JSON otherwise.
func CodecFor(path string) Codec {
	if strings.HasSuffix(path, lz4Extension) {
		return NewLZ4Codec(&JSONCodec{})
	}

	return NewJSONCodec()
}

// Marshal encodes state to a byte slice.
func Marshal(codec Codec, state any) ([]byte, error) {
	var buf bytes.Buffer

	err := codec.Encode(&buf, state)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes data into state, which must be a pointer.
func Unmarshal(codec Codec, data []byte, state any) error {
	return codec.Decode(bytes.NewReader(data), state)
}

// SaveFile encodes state to path, replacing any existing file.
func SaveFile(path string, codec Codec, state any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	err = codec.Encode(file, state)
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("encode state: %w", err)
	}

	closeErr := file.Close()
	if closeErr != nil {
		return fmt.Errorf("close state file: %w", closeErr)
	}

	return nil
}

// LoadFile decodes the file at path into state, which must be a pointer.
func LoadFile(path string, codec Codec, state any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, state)
	if err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}
