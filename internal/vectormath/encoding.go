package vectormath

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFloat32 packs v as little-endian IEEE 754 float32 values with no
// length prefix.
func EncodeFloat32(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

// DecodeFloat32 is the inverse of EncodeFloat32.
func DecodeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectormath: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
