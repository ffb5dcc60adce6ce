// The optimodel-cli tool validates catalog config files and inspects the
// resulting model table without starting the gateway.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lytix-labs/optimodel/internal/version"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

func main() {
	root := &cobra.Command{
		Use:           "optimodel-cli",
		Short:         "OptiModel gateway command line tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newModelsCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadCatalog parses a config file the way the gateway does at startup, minus
// the adapter connectivity checks.
func loadCatalog(ctx context.Context, path string) (*models.Catalog, error) {
	pricing, err := models.LoadPricing()
	if err != nil {
		return nil, err
	}
	return models.Load(ctx, path, providers.NewRegistry(), pricing, models.LoadOptions{
		SkipValidation: true,
	})
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a catalog config file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			entries := 0
			for _, list := range catalog.Models() {
				entries += len(list)
			}
			fmt.Printf("Config is valid\n")
			fmt.Printf("  Models:  %d\n", len(catalog.Models()))
			fmt.Printf("  Entries: %d\n", entries)
			return nil
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models <config-file>",
		Short: "Print the model table a config file produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			names := make([]string, 0, len(catalog.Models()))
			for name := range catalog.Models() {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tSPEED\tMAXGENLEN\tIN $/1M\tOUT $/1M")
			for _, name := range names {
				for _, e := range catalog.Lookup(name) {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
						name, e.Provider, e.SpeedRank, e.MaxGenLen,
						formatRate(e.PricePer1MInput), formatRate(e.PricePer1MOutput))
				}
			}
			return w.Flush()
		},
	}
}

func formatRate(rate *float64) string {
	if rate == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *rate)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("optimodel-cli %s\n", version.String())
		},
	}
}
