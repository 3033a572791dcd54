package cache

import "encoding/binary"

// MurmurHash32 MurmurHash2的32位版本,seed为0时与Nginx Lua的版本兼容
func MurmurHash32(data []byte, seed uint32) uint32 {
	const m uint32 = 0x5bd1e995
	const r = 24

	length := uint32(len(data))
	h := seed ^ length

	nblocks := len(data) / 4
	for i := 0; i < nblocks; i++ {
		k := binary.LittleEndian.Uint32(data[i*4:])
		k *= m
		k ^= k >> r
		k *= m

		h *= m
		h ^= k
	}

	tail := data[nblocks*4:]
	switch len(tail) {
	case 3:
		h ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(tail[0])
		h *= m
	}

	h ^= h >> 13
	h *= m
	h ^= h >> 15
	return h
}
