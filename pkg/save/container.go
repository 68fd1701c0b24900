package save

import (
	"github.com/golang/snappy"

	"github.com/liquidhelium/verilog-target-turing-complete/pkg/errors"
)

// EncodeContainer wraps a payload in the versioned compressed container:
// one format version byte followed by the Snappy block stream.
func EncodeContainer(p *Payload) ([]byte, error) {
	payload, err := EncodePayload(p)
	if err != nil {
		return nil, err
	}
	compressed := snappy.Encode(nil, payload)
	out := make([]byte, 0, len(compressed)+1)
	out = append(out, FormatVersion)
	return append(out, compressed...), nil
}

// DecodeContainerPayload strips the version byte and decompresses the
// tail, returning the raw payload bytes. Tests and debug tooling use it;
// the compiler itself never reads saves back.
func DecodeContainerPayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvariant, "empty container")
	}
	if data[0] != FormatVersion {
		return nil, errors.New(errors.ErrCodeUnsupported, "container version %d, want %d", data[0], FormatVersion)
	}
	payload, err := snappy.Decode(nil, data[1:])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvariant, err, "decompress payload")
	}
	return payload, nil
}
