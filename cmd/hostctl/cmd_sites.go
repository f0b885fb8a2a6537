package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/samirrijal/fieldtrack/internal/adapters/postgres"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

var (
	sitesFile    string
	sitesCompany string
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage the destination sites of a session",
}

var sitesLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the session's sites",
	Long: `
Loads sites from a JSON file (an array of {"id","name","latitude","longitude"},
"-" for stdin) or from the sites table for a company. An empty list clears
every route.

$ hostctl -s 3f2a sites load --company acme
$ echo '[]' | hostctl -s 3f2a sites load --file -
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if (sitesFile == "") == (sitesCompany == "") {
			return fmt.Errorf("exactly one of --file or --company is required")
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if sitesCompany != "" {
			db, err := postgres.New(ctx, current.cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			sites, err := current.controller.LoadCompanySites(ctx, postgres.NewSiteRepo(db), sitesCompany)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d sites for %s\n", len(sites), sitesCompany)
			return nil
		}

		in := cmd.InOrStdin()
		if sitesFile != "-" {
			f, err := os.Open(sitesFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		sites, err := readSites(in)
		if err != nil {
			return err
		}
		if err := current.controller.LoadSites(ctx, sites); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d sites\n", len(sites))
		return nil
	},
}

func init() {
	sitesLoadCmd.Flags().StringVarP(&sitesFile, "file", "f", "", "JSON file with sites, - for stdin")
	sitesLoadCmd.Flags().StringVar(&sitesCompany, "company", "", "load the company's sites from the database")
	sitesCmd.AddCommand(sitesLoadCmd)
	rootCmd.AddCommand(sitesCmd)
}

var validate = validator.New()

// readSites decodes and validates a JSON array of sites.
func readSites(r io.Reader) ([]domain.Site, error) {
	var sites []domain.Site
	if err := json.NewDecoder(r).Decode(&sites); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	for i, s := range sites {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("site %d: %w", i, err)
		}
	}
	if sites == nil {
		sites = []domain.Site{}
	}
	return sites, nil
}
