package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kristyson/DGK-Restaurante/internal/view"
	"github.com/kristyson/DGK-Restaurante/internal/weather"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// formatPrice renders a price in reais with Brazilian separators.
func formatPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return "R$ " + humanize.FormatFloat("#.###,##", *price)
}

func formatAvailability(rec types.MenuRecord) string {
	if rec.IsAvailable() {
		return "yes"
	}
	return "no"
}

func formatUpdated(then, now time.Time) string {
	if then.IsZero() {
		return "-"
	}
	if now.Sub(then) < time.Minute && now.Sub(then) >= 0 {
		return "just now"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

func writeMenu(w io.Writer, res view.Result, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tUNIT\tPRICE\tAVAILABLE\tUPDATED")
	for _, rec := range res.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Name,
			orDash(rec.Category),
			orDash(rec.Unit),
			formatPrice(rec.Price),
			formatAvailability(rec),
			formatUpdated(rec.UpdatedAt, now),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s of %s items shown, %s available\n",
		humanize.Comma(int64(len(res.Records))),
		humanize.Comma(int64(res.Total)),
		humanize.Comma(int64(res.AvailableCount)),
	)
	return err
}

func writeWeather(w io.Writer, st weather.Status) error {
	switch st.State {
	case weather.StateReady:
		snap := st.Snapshot
		observed := snap.Time
		if !snap.ObservedAt.IsZero() {
			observed = snap.ObservedAt.Format("02/01/2006 15:04")
		}
		_, err := fmt.Fprintf(w, "%s\n  temperature: %s °C\n  wind speed:  %s km/h\n  observed at: %s\n",
			st.Location,
			humanize.FtoaWithDigits(snap.Temperature, 1),
			humanize.FtoaWithDigits(snap.WindSpeed, 1),
			observed,
		)
		return err
	default:
		_, err := fmt.Fprintln(w, st.Message)
		return err
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
