package transport

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/packetcomm/internal/comm"
)

// Transport kinds accepted by Open.
const (
	KindSerial   = "serial"
	KindUDP      = "udp"
	KindLoopback = "loopback"
)

var ErrUnknownKind = errors.New("transport: unknown kind")

// DecodeOptions fills out from a loosely typed option map, as found under a
// config file's transport.options key. Durations may be given as strings.
func DecodeOptions(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode transport options: %w", err)
	}
	return nil
}

// Open builds the transceiver for kind from its option map. The loopback
// kind echoes every sent frame back to itself.
func Open(kind string, raw map[string]any, maxPayload int) (comm.Transceiver, error) {
	switch kind {
	case KindSerial:
		var opts SerialOptions
		if err := DecodeOptions(raw, &opts); err != nil {
			return nil, err
		}
		s, err := OpenSerial(opts, maxPayload)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindUDP:
		var opts UDPOptions
		if err := DecodeOptions(raw, &opts); err != nil {
			return nil, err
		}
		u, err := ListenUDP(opts, maxPayload)
		if err != nil {
			return nil, err
		}
		return u, nil
	case KindLoopback:
		return NewEcho(maxPayload), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
