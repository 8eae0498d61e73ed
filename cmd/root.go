// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "packetcomm",
	Short: "packetcomm - typed packet exchange over serial, UDP and in-memory links",
	Long: `packetcomm exchanges small fixed-layout packets between two endpoints,
for example a vehicle and its ground station.

Packets are framed with byte stuffing and an XOR checksum, identified by a
16-bit ID and written straight into bound variables on arrival. Packet layouts
come from a catalog file; the transport and engine are configured in YAML.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "packetcomm.yml",
		"config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(frameCmd)
}
