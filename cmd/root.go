package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	devicePath string
	byteOffset int64
)

var rootCmd = &cobra.Command{
	Use:   "fsinspect",
	Short: "Read-only APFS container inspector",
	Long: `fsinspect is a read-only command-line tool for inspecting Apple File
System (APFS) containers in raw disks, partitions, or disk images.

It validates object checksums, locates the current checkpoint, and walks
the container's object map and volume superblocks without mounting.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", "", "Path to the device or disk image")
	rootCmd.PersistentFlags().Int64Var(&byteOffset, "offset", 0, "Byte offset of the container within the device")

	rootCmd.AddCommand(
		infoCmd,
		volumesCmd,
		resolveCmd,
	)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
