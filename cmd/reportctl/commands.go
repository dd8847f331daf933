package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/reports"
)

type rootOptions struct {
	json     bool
	verbose  bool
	mongoURI string
	database string
}

// opener yields the report service and a function releasing it.
type opener func(ctx context.Context, opts rootOptions) (*reports.Service, func(), error)

type cli struct {
	opts rootOptions
	open opener
	out  io.Writer
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Freight dispatch reports",
		Long:          "reportctl recomputes the dispatch reports from the trip collection and prints them as tables or JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&c.opts.json, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "log connection details")
	root.PersistentFlags().StringVar(&c.opts.mongoURI, "mongo-uri", "", "MongoDB URI (overrides MONGO_URI)")
	root.PersistentFlags().StringVar(&c.opts.database, "database", "", "database name (overrides MONGO_DB)")

	root.AddCommand(
		c.trailersCmd(),
		c.paymentsCmd(),
		c.driverCmd(),
		c.profitabilityCmd(),
		c.alertsCmd(),
		c.workOrdersCmd(),
		c.fuelCmd(),
		c.dashboardCmd(),
	)
	return root
}

// with opens the report service for the duration of fn.
func (c *cli) with(cmd *cobra.Command, fn func(ctx context.Context, svc *reports.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := c.open(ctx, c.opts)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}

func rangeFlags(cmd *cobra.Command, from, to *string) {
	cmd.Flags().StringVar(from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(to, "to", "", "end date (YYYY-MM-DD)")
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func (c *cli) trailersCmd() *cobra.Command {
	var size, status string
	cmd := &cobra.Command{
		Use:   "trailers",
		Short: "Trailer occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				rows, err := svc.Trailers(ctx, size, engine.TrailerStatus(status))
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(rows)
				}
				tw := c.newTable(table.Row{"Plate", "Size", "Status", "Driver", "Service order", "Cargo / last event"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.Trailer.Plate, r.Trailer.TrailerSize, r.State.Status, r.State.DriverName, r.State.ServiceOrder, r.State.Label})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "trailer size filter")
	cmd.Flags().StringVar(&status, "status", "", "available or in_use")
	return cmd
}

func (c *cli) paymentsCmd() *cobra.Command {
	var from, to, driver string
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Driver payment summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := engine.ParseDateRange(from, to)
			if err != nil {
				return err
			}
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				rows, err := svc.DriverPayments(ctx, engine.PaymentFilter{Range: rng, DriverID: driver})
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(rows)
				}
				tw := c.newTable(table.Row{"Driver", "Trips", "Total"})
				tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
				var total float64
				for _, r := range rows {
					tw.AppendRow(table.Row{r.DriverName, r.TripCount, money(r.TotalPayment)})
					total += r.TotalPayment
				}
				tw.AppendFooter(table.Row{"Total", "", money(total)})
				tw.Render()
				return nil
			})
		},
	}
	rangeFlags(cmd, &from, &to)
	cmd.Flags().StringVar(&driver, "driver", "", "driver id")
	return cmd
}

func (c *cli) driverCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "driver <id>",
		Short: "Payment detail for one driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := engine.ParseDateRange(from, to)
			if err != nil {
				return err
			}
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				detail, err := svc.DriverDetail(ctx, args[0], rng)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(detail)
				}
				tw := c.newTable(table.Row{"Service order", "Cargo", "Date", "Amount"})
				tw.SetTitle(detail.DriverName)
				for _, a := range detail.Assignments {
					tw.AppendRow(table.Row{a.ServiceOrder, a.Cargo, a.CompletedAt.Format(engine.DateLayout), money(a.Payment)})
				}
				tw.AppendSeparator()
				for _, m := range detail.Movements {
					tw.AppendRow(table.Row{m.ServiceOrder, m.Notes, m.Timestamp.Format(engine.DateLayout), money(m.Amount)})
				}
				tw.AppendFooter(table.Row{"Total", "", "", money(detail.Total)})
				tw.Render()
				return nil
			})
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func (c *cli) profitabilityCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "profitability",
		Short: "Per-trip profitability of completed trips",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := engine.ParseDateRange(from, to)
			if err != nil {
				return err
			}
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				report, err := svc.Profitability(ctx, rng)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(report)
				}
				tw := c.newTable(table.Row{"Service order", "Client", "Revenue", "Cost", "Profit", "Margin %"})
				for _, r := range report.Trips {
					tw.AppendRow(table.Row{r.ServiceOrder, r.ClientName, money(r.TotalRevenue), money(r.TotalCost), money(r.Profit), money(r.Margin)})
				}
				t := report.Totals
				tw.AppendFooter(table.Row{fmt.Sprintf("%d trips", t.Trips), "", money(t.TotalRevenue), money(t.TotalCost), money(t.Profit), money(t.Margin)})
				tw.Render()
				return nil
			})
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func (c *cli) alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Trips waiting at destination without a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				alerts, err := svc.DemurrageAlerts(ctx)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(alerts)
				}
				tw := c.newTable(table.Row{"Trip", "Service order", "Client"})
				for _, a := range alerts {
					tw.AppendRow(table.Row{a.TripID, a.ServiceOrder, a.ClientName})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) workOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "work-orders",
		Short: "Completed trips grouped by client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				groups, err := svc.WorkOrders(ctx)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(groups)
				}
				tw := c.newTable(table.Row{"Client", "Orders", "Active", "Invoiced", "Billable"})
				for _, g := range groups {
					tw.AppendRow(table.Row{g.ClientName, len(g.Orders), g.Active, g.Invoiced, money(g.Billable)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) fuelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fuel",
		Short: "Gallons per truck this month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				rows, err := svc.MonthlyFuel(ctx)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(rows)
				}
				tw := c.newTable(table.Row{"Truck", "Gallons"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.Plate, money(r.Gallons)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Trip counts for the week, month and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc *reports.Service) error {
				stats, err := svc.Dashboard(ctx)
				if err != nil {
					return err
				}
				if c.opts.json {
					return c.printJSON(stats)
				}
				tw := c.newTable(table.Row{"Last 7 days", "This month", "This year", "In progress"})
				tw.AppendRow(table.Row{stats.WeeklyTrips, stats.MonthlyTrips, stats.YearlyTrips, len(stats.InProgressTrips)})
				tw.Render()
				return nil
			})
		},
	}
}
