package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/susu3304/lootsplit/internal/bless"
)

func newBlessCmd() *cobra.Command {
	var inquisition bool

	cmd := &cobra.Command{
		Use:   "bless LEVEL",
		Short: "Show blessing prices for a level",
		Long:  "Print the price of every blessing for a character level, with totals for the five regular blessings, all seven and all seven plus Twist of Fate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid level %q", args[0])
			}
			costs, err := bless.Cost(level, inquisition)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), bless.Summary(level, inquisition, costs))
			return err
		},
	}

	cmd.Flags().BoolVar(&inquisition, "inquisition", false, "Buy the five regular blessings at the Inquisition")

	return cmd
}
