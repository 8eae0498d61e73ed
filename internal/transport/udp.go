package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"

	"firestige.xyz/packetcomm/internal/codec"
)

// DefaultUDPReadTimeout bounds how long Receive waits for a datagram.
const DefaultUDPReadTimeout = time.Millisecond

// UDPOptions configures a datagram transceiver. Without a remote address
// the transceiver replies to whoever sent the last datagram; ReplyToSender
// enables that behavior even when a remote is configured.
type UDPOptions struct {
	Listen        string        `mapstructure:"listen"`
	Remote        string        `mapstructure:"remote"`
	ReplyToSender bool          `mapstructure:"reply_to_sender"`
	TOS           int           `mapstructure:"tos"`
	TTL           int           `mapstructure:"ttl"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
}

// UDP carries one frame per datagram.
type UDP struct {
	conn        *net.UDPConn
	remote      *net.UDPAddr
	follow      bool
	readTimeout time.Duration
	maxPayload  int
	maxDatagram int

	chunk []byte
	frame []byte
	out   []byte
	err   error
}

// ListenUDP binds the local address and resolves the remote one.
func ListenUDP(opts UDPOptions, maxPayload int) (*UDP, error) {
	if opts.Listen == "" {
		opts.Listen = ":0"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultUDPReadTimeout
	}

	laddr, err := net.ResolveUDPAddr("udp", opts.Listen)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %q: %w", opts.Listen, err)
	}
	var raddr *net.UDPAddr
	if opts.Remote != "" {
		if raddr, err = net.ResolveUDPAddr("udp", opts.Remote); err != nil {
			return nil, fmt.Errorf("resolve remote address %q: %w", opts.Remote, err)
		}
	}

	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", opts.Listen, err)
	}
	if err := applyIPv4Options(conn, opts); err != nil {
		conn.Close()
		return nil, err
	}

	maxDatagram := codec.MaxEncodedLen(maxPayload+1) + 1
	return &UDP{
		conn:        conn,
		remote:      raddr,
		follow:      raddr == nil || opts.ReplyToSender,
		readTimeout: opts.ReadTimeout,
		maxPayload:  maxPayload,
		maxDatagram: maxDatagram,
		chunk:       make([]byte, maxDatagram+1),
		frame:       make([]byte, 0, maxPayload+1),
		out:         make([]byte, 0, maxDatagram),
	}, nil
}

func applyIPv4Options(conn *net.UDPConn, opts UDPOptions) error {
	if opts.TOS == 0 && opts.TTL == 0 {
		return nil
	}
	pc := ipv4.NewConn(conn)
	if opts.TOS != 0 {
		if err := pc.SetTOS(opts.TOS); err != nil {
			return fmt.Errorf("set IP TOS %d: %w", opts.TOS, err)
		}
	}
	if opts.TTL != 0 {
		if err := pc.SetTTL(opts.TTL); err != nil {
			return fmt.Errorf("set IP TTL %d: %w", opts.TTL, err)
		}
	}
	return nil
}

func (u *UDP) Send(payload []byte) bool {
	if u.remote == nil || len(payload) > u.maxPayload {
		return false
	}
	var err error
	u.out, err = codec.EncodeFrame(u.out[:0], payload)
	if err != nil {
		return false
	}
	if _, err = u.conn.WriteToUDP(u.out, u.remote); err != nil {
		u.err = err
		return false
	}
	return true
}

// Receive waits up to the read timeout for one datagram. Oversized or
// corrupt datagrams are reported with an empty Received.
func (u *UDP) Receive() bool {
	if err := u.conn.SetReadDeadline(time.Now().Add(u.readTimeout)); err != nil {
		u.err = err
		return false
	}
	n, addr, err := u.conn.ReadFromUDP(u.chunk)
	if err != nil {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			u.err = err
		}
		return false
	}
	if u.follow {
		u.remote = addr
	}
	if n > u.maxDatagram {
		u.frame = u.frame[:0]
		return true
	}
	u.frame = codec.DecodeFrame(u.frame[:0], u.chunk[:n])
	return true
}

func (u *UDP) Received() []byte { return u.frame }

// LocalAddr returns the bound address.
func (u *UDP) LocalAddr() *net.UDPAddr { return u.conn.LocalAddr().(*net.UDPAddr) }

// Remote returns the current send target, nil until one is known.
func (u *UDP) Remote() *net.UDPAddr { return u.remote }

// Err returns the last non-timeout socket error.
func (u *UDP) Err() error { return u.err }

func (u *UDP) Close() error { return u.conn.Close() }
