// Package persist provides codec-based, crash-safe file persistence.
package persist

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	cborExtension = ".cbor"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Decoder limits. Aggregates are wide and flat, so the array and map limits
// are well above the library defaults while nesting stays shallow.
const (
	maxNestedLevels  = 16
	maxArrayElements = 1 << 27
	maxMapPairs      = 1 << 27
)

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec (e.g., ".json", ".cbor").
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

// NewCompactJSONCodec creates a JSON codec that writes no insignificant whitespace.
func NewCompactJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode implements Codec.Encode. Map keys are written in sorted order.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(state)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode. Numbers decoded into interfaces keep full precision.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	decoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r)
	decoder.UseNumber()

	err := decoder.Decode(state)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// CBORCodec implements Codec using deterministic CBOR (RFC 8949 core
// deterministic encoding), so equal states always produce equal bytes.
type CBORCodec struct {
	em cbor.EncMode
	dm cbor.DecMode
}

// NewCBORCodec creates a CBOR codec.
func NewCBORCodec() (*CBORCodec, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR encoder: %w", err)
	}

	dm, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: maxArrayElements,
		MaxMapPairs:      maxMapPairs,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR decoder: %w", err)
	}

	return &CBORCodec{em: em, dm: dm}, nil
}

// Marshal returns the CBOR encoding of state.
func (c *CBORCodec) Marshal(state any) ([]byte, error) {
	data, err := c.em.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}

	return data, nil
}

// Unmarshal decodes data into state, which must be a pointer.
func (c *CBORCodec) Unmarshal(data []byte, state any) error {
	err := c.dm.Unmarshal(data, state)
	if err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}

	return nil
}

// Encode implements Codec.Encode using CBOR encoding.
func (c *CBORCodec) Encode(w io.Writer, state any) error {
	err := c.em.NewEncoder(w).Encode(state)
	if err != nil {
		return fmt.Errorf("cbor encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using CBOR decoding.
func (c *CBORCodec) Decode(r io.Reader, state any) error {
	err := c.dm.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for CBOR files.
func (c *CBORCodec) Extension() string {
	return cborExtension
}
