package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/packetcomm/internal/codec"
	"firestige.xyz/packetcomm/internal/packet"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Encode or decode wire frames",
}

var frameEncodeCmd = &cobra.Command{
	Use:   "encode <payload-hex>",
	Short: "Frame a payload for the wire",
	Long: `Frame a payload (packet ID followed by field bytes) and print the wire bytes.

Examples:
  packetcomm frame encode 00010307`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFrameEncode(args[0], os.Stdout)
	},
}

var frameDecodeCmd = &cobra.Command{
	Use:   "decode <wire-hex>",
	Short: "Decode wire bytes into payloads",
	Long: `Split wire bytes at frame delimiters and print each payload, or why it
was rejected.

Examples:
  packetcomm frame decode 0105010307050000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFrameDecode(args[0], os.Stdout)
	},
}

func init() {
	frameCmd.AddCommand(frameEncodeCmd)
	frameCmd.AddCommand(frameDecodeCmd)
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func runFrameEncode(payloadHex string, out io.Writer) error {
	payload, err := parseHex(payloadHex)
	if err != nil {
		return err
	}
	wire, err := codec.EncodeFrame(nil, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "% X\n", wire)
	return nil
}

func runFrameDecode(wireHex string, out io.Writer) error {
	wire, err := parseHex(wireHex)
	if err != nil {
		return err
	}
	r := codec.NewFrameReader(len(wire) + 1)
	frames := 0
	for _, b := range wire {
		body, done := r.Push(b)
		if !done {
			continue
		}
		frames++
		payload := codec.DecodeFrame(nil, body)
		if len(payload) == 0 {
			fmt.Fprintf(out, "frame %d: invalid\n", frames)
			continue
		}
		id, _ := packet.ReadID(payload)
		fmt.Fprintf(out, "frame %d: id=%s payload=% X\n", frames, id, payload)
	}
	if r.Pending() > 0 {
		fmt.Fprintf(out, "%d trailing byte(s) without delimiter\n", r.Pending())
	}
	return nil
}
