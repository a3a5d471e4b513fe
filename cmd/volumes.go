package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "List volumes and volume groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := openContainer()
		if err != nil {
			return err
		}
		defer container.Close()

		groups, err := container.VolumeGroups()
		if err != nil {
			return err
		}

		for _, group := range groups {
			if len(group.Volumes) > 1 {
				fmt.Printf("Volume group %s\n", group.GroupUUID)
			}
			for _, v := range group.Volumes {
				fmt.Printf("  [%d] %-24s role=%-10s uuid=%s\n",
					v.Slot, v.Identity.Name(), v.Identity.RoleName(), v.Identity.UUID())
				if verbose {
					fmt.Printf("      files=%d dirs=%d snapshots=%d flags=0x%X\n",
						v.Reader.FileCount(), v.Reader.DirectoryCount(),
						v.Reader.SnapshotCount(), v.Reader.Flags())
				}
			}
		}
		return nil
	},
}
