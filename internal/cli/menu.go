package cli

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kristyson/DGK-Restaurante/internal/view"
)

var listFlags = struct {
	Name         string
	Category     string
	Availability string
	MinPrice     string
	MaxPrice     string
	Location     string
	Sort         string
	Direction    string
	JSON         bool
}{}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Inspect the menu",
}

var menuListCmd = &cobra.Command{
	Use:   "list",
	Short: "List menu items with filters and sorting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		st := newStore(gw, cfg)

		ctx := log.Logger.WithContext(cmd.Context())
		if err := st.Refresh(ctx); err != nil {
			return err
		}

		res := view.Derive(st.Records(), view.FilterCriteria{
			Name:         listFlags.Name,
			Category:     listFlags.Category,
			Availability: view.ParseAvailability(listFlags.Availability),
			MinPrice:     listFlags.MinPrice,
			MaxPrice:     listFlags.MaxPrice,
			Location:     listFlags.Location,
		}, view.ParseSortSpec(listFlags.Sort, listFlags.Direction))

		out := cmd.OutOrStdout()
		if listFlags.JSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return writeMenu(out, res, time.Now())
	},
}

func init() {
	f := menuListCmd.Flags()
	f.StringVar(&listFlags.Name, "name", "", "case-insensitive name substring")
	f.StringVar(&listFlags.Category, "category", view.All, "category, or all")
	f.StringVar(&listFlags.Availability, "availability", string(view.AvailabilityAll), "available, unavailable or all")
	f.StringVar(&listFlags.MinPrice, "min-price", "", "minimum price")
	f.StringVar(&listFlags.MaxPrice, "max-price", "", "maximum price")
	f.StringVar(&listFlags.Location, "location", view.All, "unit, or all")
	f.StringVar(&listFlags.Sort, "sort", string(view.SortByName), "name, price, category or location")
	f.StringVar(&listFlags.Direction, "dir", string(view.Ascending), "asc or desc")
	f.BoolVar(&listFlags.JSON, "json", false, "print JSON instead of a table")

	menuCmd.AddCommand(menuListCmd)
}
