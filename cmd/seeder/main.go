package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locvowork/vacation_reports/internal/config"
	"github.com/locvowork/vacation_reports/internal/logger"
	"github.com/locvowork/vacation_reports/internal/sample"
	"github.com/locvowork/vacation_reports/internal/service"
)

var (
	configPath  string
	count       int
	departments []string
	out         string
	baseDir     string
	seed        uint64
)

func main() {
	var cfg *config.ProcessingConfig
	rootCmd := &cobra.Command{
		Use:   "seeder",
		Short: "Generate demo templates, staff workbooks and filled forms",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.InitLogging(logger.Options{Level: "info", Console: true})
			var err error
			cfg, err = config.LoadProcessingConfig(configPath)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Processing config file")

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "Write the stock templates into the configured templates dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sample.WriteTemplates(cfg); err != nil {
				return err
			}
			fmt.Println("templates written to", cfg.Templates.Dir)
			return nil
		},
	}

	staffCmd := &cobra.Command{
		Use:   "staff",
		Short: "Write a staff workbook with generated employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			employees := sample.Employees(count, departments)
			if err := sample.WriteStaff(out, cfg.Staff.HeaderRow, employees); err != nil {
				return err
			}
			fmt.Printf("%d employees in %s written to %s\n", len(employees), strings.Join(departments, ", "), out)
			return nil
		},
	}
	staffCmd.Flags().IntVar(&count, "count", 50, "Number of employees")
	staffCmd.Flags().StringSliceVar(&departments, "departments", []string{"Продажи", "ИТ", "Бухгалтерия"}, "Departments to spread employees over")
	staffCmd.Flags().StringVar(&out, "out", "staff.xlsx", "Output workbook")

	fillCmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the employee forms under --base with random answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewVacationService(cfg, nil)
			depts, err := svc.ScanDepartments(cmd.Context(), baseDir)
			if err != nil {
				return err
			}
			rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			stats := map[string]int{}
			for _, d := range depts {
				for _, f := range d.EmployeeFiles {
					status, err := sample.FillRandom(cfg, f, rnd)
					if err != nil {
						return fmt.Errorf("fill %s: %w", f, err)
					}
					stats[status]++
				}
			}
			for status, n := range stats {
				if status == "" {
					status = "untouched"
				}
				fmt.Printf("%-30s %d\n", status, n)
			}
			return nil
		},
	}
	fillCmd.Flags().StringVar(&baseDir, "base", "", "Directory with department subdirectories")
	fillCmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	_ = fillCmd.MarkFlagRequired("base")

	rootCmd.AddCommand(templatesCmd, staffCmd, fillCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
