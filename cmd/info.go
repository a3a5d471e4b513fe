package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fsinspect/go-apfs/pkg/apfs"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show container superblock and checkpoint details",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := openContainer()
		if err != nil {
			return err
		}
		defer container.Close()

		sb := container.Superblock()
		fmt.Printf("Container UUID:    %s\n", uuid.UUID(sb.UUID()))
		fmt.Printf("Block size:        %d\n", sb.BlockSize())
		fmt.Printf("Block count:       %d\n", sb.BlockCount())
		fmt.Printf("Checkpoint XID:    %d\n", container.TransactionID())
		fmt.Printf("Object map OID:    %d\n", sb.ObjectMapOID())
		fmt.Printf("Volume slots:      %d\n", sb.MaxFileSystems())
		fmt.Printf("Occupied slots:    %d\n", len(sb.VolumeOIDs()))

		if verbose {
			fmt.Printf("Descriptor base:   %d\n", sb.CheckpointDescriptorBase())
			fmt.Printf("Descriptor blocks: %d\n", sb.CheckpointDescriptorBlocks())
			fmt.Printf("Next object ID:    %d\n", sb.NextObjectID())
			fmt.Printf("Next XID:          %d\n", sb.NextTransactionID())
			fmt.Printf("Features:          0x%016X\n", sb.Features())
			fmt.Printf("Flags:             0x%016X\n", sb.Flags())
		}
		return nil
	},
}

// openContainer opens the container named by the global flags.
func openContainer() (*apfs.Container, error) {
	if devicePath == "" {
		return nil, fmt.Errorf("no device specified, use --device")
	}

	config, err := LoadInspectConfig()
	if err != nil {
		return nil, err
	}
	offset, cacheBlocks := effectiveOptions(config)

	return apfs.OpenWithOptions(devicePath, apfs.Options{
		ByteOffset:  offset,
		CacheBlocks: cacheBlocks,
	})
}
