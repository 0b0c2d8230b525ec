package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/locvowork/vacation_reports/internal/bootstrap"
	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/service"
)

var (
	configPath  string
	staffPath   string
	targetDir   string
	baseDir     string
	outputDir   string
	departments []string
	port        string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewApp()
	rootCmd := &cobra.Command{
		Use:           "vacation-reports",
		Short:         "Generate and aggregate vacation planning workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// serve logs JSON, everything else is interactive
			return app.Initialize(cmd.Context(), configPath, cmd.Name() != "serve")
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Processing config file (.yaml, .yml or .toml)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the staff workbook without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Service.ValidateStaff(cmd.Context(), staffPath)
			printJSON(res)
			return err
		},
	}
	validateCmd.Flags().StringVar(&staffPath, "staff", "", "Staff workbook")
	_ = validateCmd.MarkFlagRequired("staff")

	employeesCmd := &cobra.Command{
		Use:   "employees",
		Short: "Create one vacation form per employee, grouped by department",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployees(cmd.Context(), app.Service)
		},
	}
	employeesCmd.Flags().StringVar(&staffPath, "staff", "", "Staff workbook")
	employeesCmd.Flags().StringVar(&targetDir, "target", "", "Output directory")
	_ = employeesCmd.MarkFlagRequired("staff")
	_ = employeesCmd.MarkFlagRequired("target")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List department directories and their files",
		RunE: func(cmd *cobra.Command, args []string) error {
			depts, err := app.Service.ScanDepartments(cmd.Context(), baseDir)
			if err != nil {
				return err
			}
			for _, d := range depts {
				mark := "-"
				if d.HasBlockReport() {
					mark = "+"
				}
				fmt.Printf("%s %s: %d employee files, %d block reports\n", mark, d.Name, len(d.EmployeeFiles), len(d.BlockReports))
			}
			return nil
		},
	}

	blockCmd := &cobra.Command{
		Use:   "block-reports",
		Short: "Build a block report for each department",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.Service.UpdateBlockReports(cmd.Context(), service.BlockReportsRequest{
				BaseDir:     baseDir,
				Departments: departments,
				Observer:    progressPrinter(),
			})
			return finish(log, err)
		},
	}
	blockCmd.Flags().StringSliceVar(&departments, "departments", nil, "Departments to process (default: all)")

	generalCmd := &cobra.Command{
		Use:   "general-report",
		Short: "Aggregate the latest block reports into one workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.Service.CreateGeneralReport(cmd.Context(), service.GeneralReportRequest{
				BaseDir:     baseDir,
				Departments: departments,
				OutputDir:   outputDir,
				Observer:    progressPrinter(),
			})
			return finish(log, err)
		},
	}
	generalCmd.Flags().StringSliceVar(&departments, "departments", nil, "Departments to include (default: all)")
	generalCmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: --base)")

	for _, c := range []*cobra.Command{scanCmd, blockCmd, generalCmd} {
		c.Flags().StringVar(&baseDir, "base", "", "Directory holding one subdirectory per department")
		_ = c.MarkFlagRequired("base")
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the operations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			errCh := make(chan error, 1)
			go func() { errCh <- app.Run(port) }()
			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				return app.Echo.Shutdown(context.Background())
			}
		},
	}
	serveCmd.Flags().StringVar(&port, "port", "", "HTTP port (default: APP_PORT)")

	rootCmd.AddCommand(validateCmd, employeesCmd, scanCmd, blockCmd, generalCmd, serveCmd)

	err := rootCmd.ExecuteContext(ctx)
	if cerr := app.Close(); cerr != nil {
		logger.WarnLog(ctx, "close database: %v", cerr)
	}
	if err != nil {
		logger.ErrorLog(ctx, err, "command failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func runEmployees(ctx context.Context, svc service.ReportService) error {
	res, err := svc.CreateEmployeeFiles(ctx, service.EmployeeFilesRequest{
		StaffPath: staffPath,
		TargetDir: targetDir,
		Observer:  progressPrinter(),
	})
	if res == nil {
		return err
	}
	for _, w := range res.Validation.Warnings {
		fmt.Println("warning:", w)
	}
	if res.State == service.StateCancelled && res.Transaction != nil {
		// the interrupt context is done, roll back on a fresh one
		rb, rbErr := res.Transaction.Rollback(context.Background())
		if rbErr != nil {
			return rbErr
		}
		fmt.Printf("cancelled: %d changes reversed, %d failed\n", rb.Reversed, len(rb.Failed))
	}
	fmt.Printf("%s: %d created, %d skipped\n", res.State, len(res.Created), res.Skipped)
	return finish(res.Log, err)
}

func progressPrinter() domain.ProgressObserver {
	return domain.ProgressFunc(func(p domain.Progress) {
		fmt.Fprintf(os.Stderr, "[%s %d/%d] %s\n", p.Scope, p.Processed, p.Total, p.Current)
	})
}

func finish(log *domain.OperationLog, err error) error {
	if log != nil {
		for _, e := range log.Entries {
			if e.Level != domain.LevelInfo {
				fmt.Printf("%s %s\n", e.Level, e.Message)
			}
		}
		if len(log.OutputFiles) > 0 {
			fmt.Println("written:\n  " + strings.Join(log.OutputFiles, "\n  "))
		}
		fmt.Printf("%s finished with status %s in %s\n", log.Operation, log.Status, log.Duration())
	}
	if err != nil {
		return err
	}
	if log != nil && log.Status == domain.StatusError {
		return errors.New("operation failed")
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
