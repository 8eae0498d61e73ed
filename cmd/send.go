package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/packetcomm/internal/catalog"
	"firestige.xyz/packetcomm/internal/config"
	"firestige.xyz/packetcomm/internal/daemon"
	"firestige.xyz/packetcomm/internal/log"
	"firestige.xyz/packetcomm/internal/packet"
)

var (
	sendPacket   string
	sendSets     []string
	sendCount    int
	sendInterval time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a catalog packet",
	Long: `Send a catalog packet with the given field values.

Examples:
  packetcomm send -p arm                                 # send an event packet
  packetcomm send -p steering --set x=3 --set y=7        # send a data packet
  packetcomm send -p steering --set x=1 -n 10 -i 100ms   # send it ten times`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log); err != nil {
			return err
		}
		rt, err := daemon.OpenRuntime(cfg, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		inst, ok := rt.Set.Lookup(sendPacket)
		if !ok {
			return fmt.Errorf("packet %q is not in the catalog", sendPacket)
		}
		return runSend(rt.Endpoint, inst, sendSets, sendCount, sendInterval, os.Stdout)
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendPacket, "packet", "p", "", "catalog packet name (required)")
	sendCmd.Flags().StringArrayVar(&sendSets, "set", nil, "field assignment, name=value (repeatable)")
	sendCmd.Flags().IntVarP(&sendCount, "count", "n", 1, "number of times to send")
	sendCmd.Flags().DurationVarP(&sendInterval, "interval", "i", 0, "pause between sends")
	sendCmd.MarkFlagRequired("packet")
}

type sender interface {
	Send(p packet.Packet) bool
}

func runSend(s sender, inst *catalog.Instance, sets []string, count int, interval time.Duration, out io.Writer) error {
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, want name=value", kv)
		}
		if err := inst.Set(name, value); err != nil {
			return err
		}
	}
	if count < 1 {
		count = 1
	}

	for i := 0; i < count; i++ {
		if i > 0 && interval > 0 {
			time.Sleep(interval)
		}
		if !s.Send(inst.Packet()) {
			return fmt.Errorf("failed to send %s", inst)
		}
	}
	fmt.Fprintf(out, "sent %s x%d\n", inst, count)
	return nil
}
