package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		wasteFlags []string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a party hunt log and print the split",
		Long:  "Read a Party Hunt session log from a file or stdin and print players, totals and the transfers that equalise profit. Output is text, JSON or YAML.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waste, err := parseWasteFlags(wasteFlags)
			if err != nil {
				return err
			}

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			sess, err := hunt.Parse(text)
			if err != nil {
				return fmt.Errorf("parse session: %w", err)
			}
			for name := range waste {
				if _, ok := sess.Player(name); !ok {
					return fmt.Errorf("--waste %s: %w", name, lootsplit.ErrUnknownPlayer)
				}
			}
			sess = sess.WithExtraWaste(waste)
			a.logger.Debug("session parsed",
				zap.Int("players", len(sess.Players)),
				zap.Int("transfers", len(sess.Transfers)))

			return writeSession(cmd.OutOrStdout(), format, sess, waste)
		},
	}

	cmd.Flags().StringArrayVar(&wasteFlags, "waste", nil, "Extra waste as name=amount (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseWasteFlags reads "name=amount" pairs. The last '=' separates the amount,
// which may use thousands separators.
func parseWasteFlags(flags []string) (map[string]int64, error) {
	waste := make(map[string]int64, len(flags))
	for _, f := range flags {
		i := strings.LastIndex(f, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --waste %q: want name=amount", f)
		}
		name := strings.TrimSpace(f[:i])
		amount, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(f[i+1:]), ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --waste %q: %w", f, err)
		}
		if amount < 0 {
			return nil, fmt.Errorf("invalid --waste %q: %w", f, lootsplit.ErrNegativeAmount)
		}
		waste[name] = amount
	}
	return waste, nil
}

func writeSession(w io.Writer, format string, sess *hunt.Session, waste map[string]int64) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, lootsplit.Summary(sess, waste))
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sess); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: want text, json or yaml", format)
	}
}
