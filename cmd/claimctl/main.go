// claimctl is the operations CLI: exporting claims to ERP files from the
// command line and repairing interrupted claim creation.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/fieldclaims/fieldclaims/internal/application/export"
	"github.com/fieldclaims/fieldclaims/internal/application/service"
	"github.com/fieldclaims/fieldclaims/internal/config"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/repository"
	"github.com/fieldclaims/fieldclaims/internal/infrastructure/persistence/sqlite"
	"github.com/fieldclaims/fieldclaims/pkg/database"
	"github.com/fieldclaims/fieldclaims/pkg/utils"
)

const version = "1.0.0"

var (
	configPath string
	userID     int64
	companyID  int64
	outPath    string
	format     string
)

func main() {
	_ = gotenv.Load()

	root := &cobra.Command{
		Use:   "claimctl",
		Short: "Field claims billing operations",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	root.PersistentFlags().Int64Var(&userID, "user-id", 0, "acting user id")
	root.PersistentFlags().Int64Var(&companyID, "company-id", 0, "company (tenant) id")

	exportCmd := &cobra.Command{
		Use:   "export <claim-id>",
		Short: "Export a claim in an ERP import format",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&format, "format", "f", "bulk-csv", "invoice-json, bulk-csv or workbook")

	repairCmd := &cobra.Command{
		Use:   "repair-invoicing <claim-id>",
		Short: "Re-run the unit batch update for an interrupted claim creation",
		Args:  cobra.ExactArgs(1),
		RunE:  runRepair,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the claimctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("claimctl " + version)
		},
	}

	root.AddCommand(exportCmd, repairCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// stack wires the minimal dependency set the CLI commands need
type stack struct {
	db            *database.DB
	claimService  service.ClaimService
	exportService service.ExportService
}

func buildStack() (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// command-line runs log warnings and errors only
	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "warn", OutputPath: "stderr", Format: "console"})
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	sugar := utils.Sugar(logger)
	txDB := sqlite.NewDB(db.DB, logger)
	unitRepo := repository.NewUnitEntryRepository(txDB, logger)
	claimRepo := repository.NewClaimRepository(txDB, logger)

	return &stack{
		db: db,
		claimService: service.NewClaimService(
			claimRepo, unitRepo, txDB, nil, sugar, cfg.Billing.DefaultDueDays),
		exportService: service.NewExportService(claimRepo, nil, sugar, export.Options{
			BusinessUnit:       cfg.Export.BusinessUnit,
			VendorID:           cfg.Export.VendorID,
			Currency:           cfg.Export.Currency,
			Source:             cfg.Export.Source,
			ContractorCategory: cfg.Export.ContractorCategory,
		}),
	}, nil
}

func actor() (service.Identity, error) {
	if userID <= 0 || companyID <= 0 {
		return service.Identity{}, fmt.Errorf("--user-id and --company-id are required")
	}
	return service.Identity{UserID: userID, CompanyID: companyID}, nil
}

func parseClaimID(arg string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid claim id %q", arg)
	}
	return id, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := parseClaimID(args[0])
	if err != nil {
		return err
	}
	who, err := actor()
	if err != nil {
		return err
	}

	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.db.Close()

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx := cmd.Context()
	switch strings.ToLower(format) {
	case "invoice-json":
		payload, err := s.exportService.InvoiceJSON(ctx, who, id)
		if err != nil {
			return err
		}
		return writeJSON(out, payload)
	case "bulk-csv":
		return s.exportService.BulkCSV(ctx, who, id, out)
	case "workbook":
		return s.exportService.Workbook(ctx, who, id, out)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func runRepair(cmd *cobra.Command, args []string) error {
	id, err := parseClaimID(args[0])
	if err != nil {
		return err
	}
	who, err := actor()
	if err != nil {
		return err
	}

	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.db.Close()

	affected, err := s.claimService.RepairInvoicing(cmd.Context(), who, id)
	if err != nil {
		return err
	}

	fmt.Printf("claim %d: %d unit entries updated\n", id, affected)
	if affected == 0 {
		fmt.Println("nothing to repair; all entries already invoiced")
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
