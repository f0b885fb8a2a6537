package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/fieldtrack/internal/bridge"
	"github.com/samirrijal/fieldtrack/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search places and print the ranked results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current.controller
		if err := c.Start(); err != nil {
			return err
		}
		events := c.Events(8)

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := c.Search(ctx, strings.Join(args, " ")); err != nil {
			return err
		}

		for {
			select {
			case e, ok := <-events:
				if !ok {
					return fmt.Errorf("controller closed")
				}
				if r, ok := e.(bridge.SearchResultsEvent); ok {
					printResults(cmd.OutOrStdout(), r.Results)
					return nil
				}
			case <-ctx.Done():
				return fmt.Errorf("no results within %s: %w", timeout, ctx.Err())
			}
		}
	},
}

var (
	navLat     float64
	navLng     float64
	navAddress string
)

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Drop a place marker and focus the map on it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return current.controller.Navigate(ctx, domain.Position{Lat: navLat, Lng: navLng}, navAddress)
	},
}

var returnCmd = &cobra.Command{
	Use:   "return",
	Short: "Recenter the map on the tracked user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return current.controller.ReturnToUser(ctx)
	},
}

var exitStreetViewCmd = &cobra.Command{
	Use:   "exit-street-view",
	Short: "Leave the immersive view",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		return current.controller.ExitStreetView(ctx)
	},
}

func init() {
	navigateCmd.Flags().Float64Var(&navLat, "lat", 0, "latitude")
	navigateCmd.Flags().Float64Var(&navLng, "lng", 0, "longitude")
	navigateCmd.Flags().StringVar(&navAddress, "address", "", "address shown on the marker")
	_ = navigateCmd.MarkFlagRequired("lat")
	_ = navigateCmd.MarkFlagRequired("lng")

	rootCmd.AddCommand(searchCmd, navigateCmd, returnCmd, exitStreetViewCmd)
}

func printResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLACE\tCITY/PROVINCE\tTYPE\tLAT,LNG")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.5f,%.5f\n", i, r.PlaceName, r.CityOrProvince, r.PlaceTypeTag, r.Location.Lat, r.Location.Lng)
	}
	_ = tw.Flush()
}
