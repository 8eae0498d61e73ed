package packet

import "errors"

var (
	// Registration
	ErrNilPacket    = errors.New("packet: nil packet")
	ErrDuplicateID  = errors.New("packet: duplicate packet id")
	ErrPacketSealed = errors.New("packet: layout is fixed after registration")

	// Bindings
	ErrNilBinding = errors.New("packet: nil binding")
)
