// Package codec implements the wire framing used between endpoints.
//
// A frame on the wire is stuff(payload ++ checksum) ++ 0x00, where stuff is
// consistent overhead byte stuffing (COBS) and checksum is the XOR of every
// payload byte. The stuffed body never contains 0x00, so the delimiter alone
// is enough to resynchronize a byte stream after corruption.
package codec

// Delimiter terminates every frame on the wire.
const Delimiter byte = 0x00

// maxBlock is the code byte of a full block of 254 non-zero bytes.
const maxBlock = 0xFF

// MaxEncodedLen returns the worst-case stuffed length of n input bytes,
// excluding the trailing delimiter.
func MaxEncodedLen(n int) int {
	if n < 0 {
		n = 0
	}
	return n + n/254 + 1
}

// Stuff appends the COBS encoding of src to dst. The result contains no zero
// bytes and no delimiter.
func Stuff(dst, src []byte) []byte {
	return stuff(dst, src, nil)
}

// stuff encodes src followed by tail as one contiguous input.
func stuff(dst, src, tail []byte) []byte {
	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)
	for _, part := range [2][]byte{src, tail} {
		for _, b := range part {
			if b == 0 {
				dst[codeIdx] = code
				codeIdx = len(dst)
				dst = append(dst, 0)
				code = 1
				continue
			}
			dst = append(dst, b)
			code++
			if code == maxBlock {
				dst[codeIdx] = code
				codeIdx = len(dst)
				dst = append(dst, 0)
				code = 1
			}
		}
	}
	dst[codeIdx] = code
	return dst
}

// Unstuff appends the decoding of a COBS body to dst. It reports false when
// the body is malformed: empty, containing a zero byte, or with a code byte
// pointing past the end.
func Unstuff(dst, src []byte) ([]byte, bool) {
	if len(src) == 0 {
		return dst, false
	}
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return dst, false
		}
		end := i + int(code)
		if end > len(src) {
			return dst, false
		}
		for _, b := range src[i+1 : end] {
			if b == 0 {
				return dst, false
			}
			dst = append(dst, b)
		}
		i = end
		if code != maxBlock && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, true
}
