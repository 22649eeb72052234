package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/florex/internal/app"
	"github.com/Additional-Code/florex/internal/dto"
	exportsvc "github.com/Additional-Code/florex/internal/service/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Prepare and inspect export batches",
	}
	cmd.AddCommand(newExportPreviewCmd(), newExportCommitCmd(), newExportListCmd(), newExportShowCmd())
	return cmd
}

func newExportPreviewCmd() *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List unexported confirmed orders with per-client and per-product totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExportService(cmd.Context(), func(ctx context.Context, svc *exportsvc.Service) error {
				preview, err := svc.Preview(ctx, exportsvc.OrdersQuery{Start: start, End: end})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewPreviewResponse(preview.Orders, preview.Summary))
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", time.Now().UTC().Format(time.DateOnly), "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day, inclusive (YYYY-MM-DD)")
	return cmd
}

func newExportCommitCmd() *cobra.Command {
	var (
		date   string
		userID int64
		ids    []int64
	)
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Create an export batch from the given orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExportService(cmd.Context(), func(ctx context.Context, svc *exportsvc.Service) error {
				res, err := svc.Commit(ctx, exportsvc.CommitInput{Date: date, UserID: userID, OrderIDs: ids})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewCommitResponse(res.Batch, res.OrderIDs))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().UTC().Format(time.DateOnly), "Batch date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&userID, "user", 0, "Id of the user creating the batch")
	cmd.Flags().Int64SliceVar(&ids, "orders", nil, "Comma separated order ids")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("orders")
	return cmd
}

func newExportListCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List export batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExportService(cmd.Context(), func(ctx context.Context, svc *exportsvc.Service) error {
				res, err := svc.List(ctx, exportsvc.Paging{Page: page, PageSize: size})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, b := range dto.NewExportResponses(res.Items) {
					fmt.Fprintf(out, "%d\t%s\t%s\t%d pedidos\t%s\n", b.ID, b.Fecha, b.Estado, b.Pedidos, b.Usuario.Nombre)
				}
				fmt.Fprintf(out, "page %d of %d (%d batches)\n", res.Page, res.TotalPages, res.Total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&size, "page-size", 0, "Page size (0 uses the configured default)")
	return cmd
}

func newExportShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show an export batch with its orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid export id %q", args[0])
			}
			return withExportService(cmd.Context(), func(ctx context.Context, svc *exportsvc.Service) error {
				batch, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto.NewExportDetailResponse(batch))
			})
		},
	}
}

func withExportService(ctx context.Context, fn func(context.Context, *exportsvc.Service) error) error {
	var svc *exportsvc.Service
	opts := fx.Options(app.Core, fx.Populate(&svc))
	return runWithApp(ctx, opts, func(ctx context.Context) error {
		return fn(ctx, svc)
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
