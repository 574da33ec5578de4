package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// NewSpacesCommand creates the spaces command group
func NewSpacesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "spaces",
		Aliases: []string{"space"},
		Short:   "Inspect spaces",
		Long:    "Display kintone space metadata",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get SPACE_ID",
		Short: "Get space details",
		Long:  "Display metadata of a single space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				space, err := client.Spaces().Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get space: %w", err)
				}

				return render(cmd, space, func(w io.Writer) error {
					return renderProperties(w, [][]string{
						{"ID", space.ID},
						{"Name", space.Name},
						{"Members", formatValue(space.MemberCount)},
						{"Private", strconv.FormatBool(space.IsPrivate)},
						{"Guest", strconv.FormatBool(space.IsGuest)},
						{"Apps", strconv.Itoa(len(space.AttachedApps))},
					})
				})
			})
		},
	})

	return cmd
}
