package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/issouf7507-dev/codeqr-sub000/internal/export"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

type exportFlags struct {
	format string
	output string
	status string
	q      string
	role   string
	from   string
	to     string
}

func newExportCmd(c *cli) *cobra.Command {
	var fl exportFlags
	cmd := &cobra.Command{
		Use:       "export {orders|users|qrcodes}",
		Short:     "Export back-office data as CSV or JSON",
		Example:   "  codeqr-admin export orders --status paid --from 2026-01-01 -o orders.csv",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"orders", "users", "qrcodes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(fl.format)
			if err != nil {
				return err
			}
			return c.withServices(cmd, func(ctx context.Context, s *services) error {
				return runExport(ctx, cmd, s, args[0], f, fl)
			})
		},
	}
	cmd.Flags().StringVarP(&fl.format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&fl.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&fl.status, "status", "", "filter by status (orders, qrcodes)")
	cmd.Flags().StringVar(&fl.q, "q", "", "free text filter")
	cmd.Flags().StringVar(&fl.role, "role", "", "filter users by role")
	cmd.Flags().StringVar(&fl.from, "from", "", "orders created on or after this date (2006-01-02)")
	cmd.Flags().StringVar(&fl.to, "to", "", "orders created on or before this date (2006-01-02)")
	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, s *services, what string, f export.Format, fl exportFlags) error {
	var w io.Writer = cmd.OutOrStdout()
	if fl.output != "" {
		file, err := os.Create(fl.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		w = file
	}

	switch what {
	case "orders":
		flt := order.Filter{Status: order.Status(fl.status), Q: fl.q}
		var err error
		if flt.From, err = parseDay("from", fl.from, false); err != nil {
			return err
		}
		if flt.To, err = parseDay("to", fl.to, true); err != nil {
			return err
		}
		orders, err := s.orders.All(ctx, flt)
		if err != nil {
			return err
		}
		return export.Write(w, f, order.ExportHeader, orders)
	case "users":
		users, err := s.users.All(ctx, user.Filter{Q: fl.q, Role: user.Role(fl.role)})
		if err != nil {
			return err
		}
		return export.Write(w, f, user.ExportHeader, users)
	case "qrcodes":
		codes, err := s.qrcodes.All(ctx, qrcode.Filter{Status: qrcode.Status(fl.status), Q: fl.q})
		if err != nil {
			return err
		}
		return export.Write(w, f, qrcode.ExportHeader, codes)
	}
	return fmt.Errorf("unknown export %q", what)
}

func parseDay(field, v string, inclusiveEnd bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, validate.Errorf(field, "must be a date (2006-01-02)")
	}
	if inclusiveEnd {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
