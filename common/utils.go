package common

import (
	"encoding/binary"
	"math"
)

// Clamp limits v to the closed range [lo, hi].
func Clamp[T int | int32 | uint32 | float32](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PutFloat32 appends v to dst as a little-endian IEEE-754 float.
func PutFloat32(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}

// PutUint32 appends v to dst in little-endian order.
func PutUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// PutInt32 appends v to dst as a little-endian two's complement integer.
func PutInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}
