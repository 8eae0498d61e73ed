package codec

import "errors"

var (
	// ErrEmptyPayload is returned when a zero-length payload is framed.
	ErrEmptyPayload = errors.New("codec: empty payload")
)

// Checksum returns the XOR of every byte in payload.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// EncodeFrame appends stuff(payload ++ checksum) ++ Delimiter to dst.
func EncodeFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return dst, ErrEmptyPayload
	}
	sum := [1]byte{Checksum(payload)}
	dst = stuff(dst, payload, sum[:])
	return append(dst, Delimiter), nil
}

// DecodeFrame unstuffs body, verifies its trailing checksum and appends the
// payload without the checksum to dst. A trailing delimiter in body is
// ignored. Any failure yields dst unchanged, so callers detect it by the
// result's length not growing.
func DecodeFrame(dst, body []byte) []byte {
	if n := len(body); n > 0 && body[n-1] == Delimiter {
		body = body[:n-1]
	}
	start := len(dst)
	out, ok := Unstuff(dst, body)
	if !ok || len(out)-start < 2 {
		return dst[:start]
	}
	decoded := out[start:]
	payload, sum := decoded[:len(decoded)-1], decoded[len(decoded)-1]
	if Checksum(payload) != sum {
		return dst[:start]
	}
	return out[:len(out)-1]
}
