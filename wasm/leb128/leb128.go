// Package leb128 decodes LEB128-encoded integers from instruction streams.
package leb128

import (
	"errors"
	"fmt"
)

var ErrTruncated = errors.New("truncated integer")

// DecodeUint32 reads an unsigned 32-bit integer from the head of buf and
// returns it together with the number of bytes consumed.
func DecodeUint32(buf []byte) (ret uint32, num uint64, err error) {
	const (
		contMask    byte = 1 << 7
		payloadMask      = ^contMask
	)
	for shift := 0; shift < 35; shift += 7 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("uint32 at byte %d: %w", num, ErrTruncated)
		}
		b := buf[num]
		num++
		ret |= uint32(b&payloadMask) << shift
		if b&contMask == 0 {
			break
		}
	}
	return
}

func DecodeUint64(buf []byte) (ret uint64, num uint64, err error) {
	const (
		contMask    byte = 1 << 7
		payloadMask      = ^contMask
	)
	for shift := 0; shift < 64; shift += 7 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("uint64 at byte %d: %w", num, ErrTruncated)
		}
		b := buf[num]
		num++
		ret |= uint64(b&payloadMask) << shift
		if b&contMask == 0 {
			break
		}
	}
	return
}

func DecodeInt32(buf []byte) (ret int32, num uint64, err error) {
	const (
		contMask    byte = 1 << 7
		payloadMask      = ^contMask
		signMask    byte = 1 << 6
	)
	var shift int
	var b byte
	for shift < 35 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("int32 at byte %d: %w", num, ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int32(b&payloadMask) << shift
		shift += 7
		if b&contMask == 0 {
			break
		}
	}
	if shift < 32 && b&signMask != 0 {
		ret |= ^0 << shift
	}
	return
}

func DecodeInt64(buf []byte) (ret int64, num uint64, err error) {
	const (
		contMask    byte = 1 << 7
		payloadMask      = ^contMask
		signMask    byte = 1 << 6
	)
	var shift int
	var b byte
	for shift < 64 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("int64 at byte %d: %w", num, ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int64(b&payloadMask) << shift
		shift += 7
		if b&contMask == 0 {
			break
		}
	}
	if shift < 64 && b&signMask != 0 {
		ret |= ^0 << shift
	}
	return
}

// DecodeInt33AsInt64 reads the signed 33-bit block type used by control
// instructions.
func DecodeInt33AsInt64(buf []byte) (ret int64, num uint64, err error) {
	const (
		contMask    byte  = 1 << 7
		payloadMask       = ^contMask
		signMask    byte  = 1 << 6
		valueMask   int64 = 1<<33 - 1
		topBit      int64 = 1 << 32
	)
	var shift int
	var b byte
	for shift < 35 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("int33 at byte %d: %w", num, ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int64(b&payloadMask) << shift
		shift += 7
		if b&contMask == 0 {
			break
		}
	}
	if shift < 33 && b&signMask != 0 {
		ret |= ^0 << shift
	}
	ret &= valueMask
	if ret&topBit != 0 {
		ret -= topBit << 1
	}
	return ret, num, nil
}
