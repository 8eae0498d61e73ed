package packet

import (
	"encoding/binary"
	"fmt"
)

// ID identifies a packet layout on the wire.
type ID uint16

// IDSize is the number of bytes an ID occupies at the start of every payload.
const IDSize = 2

// PutID writes id big-endian into the first IDSize bytes of dst.
func PutID(dst []byte, id ID) {
	binary.BigEndian.PutUint16(dst, uint16(id))
}

// ReadID extracts the leading ID of buf. It reports false when buf is
// shorter than IDSize.
func ReadID(buf []byte) (ID, bool) {
	if len(buf) < IDSize {
		return 0, false
	}
	return ID(binary.BigEndian.Uint16(buf)), true
}

func (id ID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}
