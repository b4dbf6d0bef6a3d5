package avro

import (
	"fmt"

	"github.com/linkedin/goavro/v2"
)

// Codec wraps a goavro codec for binary encode/decode. goavro codecs are
// safe for concurrent use.
type Codec struct {
	codec *goavro.Codec
}

func NewCodec(schema string) (*Codec, error) {
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("create avro codec: %w", err)
	}
	return &Codec{codec: codec}, nil
}

// Encode converts a native value (map[string]any for records) to Avro binary.
func (c *Codec) Encode(native any) ([]byte, error) {
	binary, err := c.codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, fmt.Errorf("encode avro binary: %w", err)
	}
	return binary, nil
}

// Decode converts Avro binary back to its native representation.
func (c *Codec) Decode(binary []byte) (any, error) {
	native, _, err := c.codec.NativeFromBinary(binary)
	if err != nil {
		return nil, fmt.Errorf("decode avro binary: %w", err)
	}
	return native, nil
}
