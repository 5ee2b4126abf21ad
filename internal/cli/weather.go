package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kristyson/DGK-Restaurante/internal/weather"
)

var weatherCmd = &cobra.Command{
	Use:   "weather [location]",
	Short: "Show the current weather for a location",
	Long:  "Show the current weather for a location. Without a location, or with \"all\", the configured locations are listed.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := newGateway(cfg)
		if err != nil {
			return err
		}
		panel := newPanel(gw, cfg)

		key := weather.AllLocations
		if len(args) == 1 {
			key = args[0]
		}

		out := cmd.OutOrStdout()
		st, err := panel.Select(log.Logger.WithContext(cmd.Context()), key)
		if err != nil {
			if st.State == weather.StateFailed {
				_ = writeWeather(out, st)
			}
			return err
		}
		if err := writeWeather(out, st); err != nil {
			return err
		}
		if st.State == weather.StateAdvisory {
			_, err = fmt.Fprintf(out, "locations: %s\n", strings.Join(cfg.LocationKeys(), ", "))
			return err
		}
		return nil
	},
}
