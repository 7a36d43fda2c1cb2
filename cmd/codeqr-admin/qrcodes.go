package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/issouf7507-dev/codeqr-sub000/internal/export"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
)

func newQRCodesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qrcodes",
		Short: "Manage printed QR codes",
	}
	cmd.AddCommand(newGenerateCmd(c))
	return cmd
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		count   int
		orderID string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a batch of inactive codes for printing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > qrcode.MaxBatch {
				return fmt.Errorf("--count must be between 1 and %d", qrcode.MaxBatch)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return c.withServices(cmd, func(ctx context.Context, s *services) error {
				codes, err := s.qrcodes.Generate(ctx, count, orderID)
				if err != nil {
					return err
				}
				return export.Write(cmd.OutOrStdout(), f, qrcode.ExportHeader, codes)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of codes")
	cmd.Flags().StringVar(&orderID, "order", "", "order the codes ship with")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	return cmd
}

func newStockCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Inspect and adjust plaque stock",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show units available per product",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withServices(cmd, func(ctx context.Context, s *services) error {
					items, err := s.stock.List(ctx)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "PRODUCT\tAVAILABLE")
					for _, it := range items {
						fmt.Fprintf(tw, "%s\t%d\n", it.ProductID, it.Available)
					}
					return tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "set <productId> <units>",
			Short: "Set the units available for a product",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var units int
				if _, err := fmt.Sscan(args[1], &units); err != nil {
					return fmt.Errorf("units must be a number: %q", args[1])
				}
				return c.withServices(cmd, func(ctx context.Context, s *services) error {
					if err := s.stock.SetAvailable(ctx, args[0], units); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d units\n", args[0], units)
					return nil
				})
			},
		},
	)
	return cmd
}
