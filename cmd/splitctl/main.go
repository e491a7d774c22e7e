// splitctl is an operator CLI for inspecting and maintaining the bill
// database without going through the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"splitbill/internal/config"
	"splitbill/internal/extractor"
	"splitbill/internal/imagestore"
	imagefs "splitbill/internal/imagestore/fs"
	images3 "splitbill/internal/imagestore/s3"
	"splitbill/internal/ocr"
	"splitbill/internal/service"
	"splitbill/internal/storage"
	"splitbill/internal/storage/postgres"
	"splitbill/internal/storage/sqlite"
	"splitbill/pkg/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "splitctl",
	Short:        "Operate on the bill splitting database",
	SilenceUsage: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Parse a receipt text file into line items",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "List stored bills",
	RunE:  runBills,
}

var splitCmd = &cobra.Command{
	Use:   "split [bill-id]",
	Short: "Calculate each participant's share of a bill",
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all bills, items, participants, and receipt images",
	RunE:  runReset,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./splitbill.toml", "config file path")
	rootCmd.AddCommand(extractCmd, billsCmd, splitCmd, resetCmd)
}

func main() {
	logging.Setup()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read receipt text: %w", err)
	}

	items := extractor.WithKeywords(cfg.NoiseKeywords()).Extract(string(text))
	if len(items) == 0 {
		cmd.Println("No line items recognized.")
		return nil
	}

	for _, item := range items {
		cmd.Printf("%dx %-30s %12.0f\n", item.Quantity, item.Name, item.Price)
	}
	return nil
}

func runBills(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	bills, err := svc.ListBills(cmd.Context())
	if err != nil {
		return err
	}
	if len(bills) == 0 {
		cmd.Println("No bills stored.")
		return nil
	}

	for _, bill := range bills {
		created := time.Unix(bill.CreatedAt, 0).Format(time.DateTime)
		cmd.Printf("%s  %-30s %12.0f  %s\n", bill.ID, bill.Title, bill.Subtotal, created)
	}
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	split, err := svc.CalculateSplit(cmd.Context(), args[0], -1, -1)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("bill %s not found", args[0])
		}
		return err
	}
	if len(split.Shares) == 0 {
		cmd.Println("No assignments yet.")
		return nil
	}

	for name, share := range split.Shares {
		cmd.Printf("%-20s base %12.2f  final %12.2f\n", name, share.BasePrice, share.FinalPrice)
		for _, item := range share.Items {
			cmd.Printf("  - %s\n", item)
		}
	}
	cmd.Printf("%-20s %12s  final %12.2f\n", "grand total", "", split.GrandTotalEstimate)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Reset(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("All data deleted.")
	return nil
}

// noOCR satisfies the engine interface for commands that never scan.
type noOCR struct{}

func (noOCR) Name() string { return "none" }

func (noOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", errors.New("ocr is not available from splitctl")
}

func openService(ctx context.Context) (*service.BillService, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var engine ocr.Engine = noOCR{}
	svc := service.NewBillService(
		store,
		images,
		engine,
		extractor.WithKeywords(cfg.NoiseKeywords()),
		cfg.Split.TaxRate,
		cfg.Split.ServiceRate,
	)
	return svc, func() { store.Close() }, nil
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.DB.Driver == "postgres" {
		return postgres.New(cfg.DB.DSN)
	}
	return sqlite.New(cfg.DB.Path)
}

func openImageStore(ctx context.Context, cfg config.Config) (imagestore.Store, error) {
	if cfg.Images.Driver == "s3" {
		return images3.New(ctx, images3.Config{
			Region:    cfg.Images.Region,
			Bucket:    cfg.Images.Bucket,
			Endpoint:  cfg.Images.Endpoint,
			PathStyle: cfg.Images.PathStyle,
		})
	}
	return imagefs.New(cfg.Images.Root)
}
