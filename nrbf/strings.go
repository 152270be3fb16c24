package nrbf

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
)

// readExact reads exactly n bytes or reports UnexpectedEOF.
func readExact(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	got, err := io.ReadFull(r, b)
	if err != nil {
		return nil, &xerr.UnexpectedEOF{Expected: n, Actual: got}
	}
	return b, nil
}

// readLengthPrefixedString decodes the NRBF variable-length string prefix:
// up to five 7-bit little-endian groups (LEB128, 32-bit ceiling), followed
// by that many UTF-8 bytes.
func readLengthPrefixedString(r io.Reader) (string, error) {
	multipliers := []int{1, 128, 16384, 2097152, 268435456}
	length := 0
	for _, mult := range multipliers {
		b, err := readExact(r, 1)
		if err != nil {
			return "", err
		}
		length += int(b[0]&0x7F) * mult
		if b[0] <= 127 {
			body, err := readExact(r, length)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
	}
	return "", &xerr.InvalidLengthPrefix{}
}

func readInt32LE(r io.Reader) (int32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func readUint32LE(r io.Reader) (uint32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func readInt16LE(r io.Reader) (int16, error) {
	b, err := readExact(r, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func readUint16LE(r io.Reader) (uint16, error) {
	b, err := readExact(r, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func readInt64LE(r io.Reader) (int64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func readUint64LE(r io.Reader) (uint64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func readFloat32LE(r io.Reader) (float32, error) {
	b, err := readExact(r, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func readFloat64LE(r io.Reader) (float64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
