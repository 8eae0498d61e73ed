package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/packetcomm/internal/catalog"
	"firestige.xyz/packetcomm/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and packet catalog",
	Long: `Validate the configuration file and the packet catalog it points to
without opening the transport.

Examples:
  packetcomm validate -c packetcomm.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(configFile, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "VALID: %s transport, %d packet(s)\n", cfg.Transport.Type, len(cat.Packets))
	for _, d := range cat.Packets {
		if d.PayloadSize() > cfg.Engine.MaxFrameSize {
			return fmt.Errorf("packet %q needs %d bytes, engine.max_frame_size is %d",
				d.Name, d.PayloadSize(), cfg.Engine.MaxFrameSize)
		}
		fmt.Fprintf(out, "  0x%04X %-16s %-5s %3d bytes\n", d.ID, d.Name, d.Type, d.PayloadSize())
	}
	return nil
}
