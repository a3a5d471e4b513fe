package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fsinspect/go-apfs/internal/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <oid>",
	Short: "Resolve a virtual object identifier through the container's object map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		oid, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid object identifier %q: %w", args[0], err)
		}

		container, err := openContainer()
		if err != nil {
			return err
		}
		defer container.Close()

		addr, err := container.Resolve(types.OidT(oid))
		if err != nil {
			return err
		}
		fmt.Printf("oid %d -> block %d (xid %d)\n", oid, addr, container.TransactionID())
		return nil
	},
}
