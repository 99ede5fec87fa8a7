package tracker

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Render writes a plain-text view of s.
func Render(w io.Writer, s State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ISS POSITION")
	if s.Position == nil {
		fmt.Fprintln(tw, "  loading...")
	} else {
		p := s.Position
		fmt.Fprintf(tw, "  Latitude\t%.4f°\n", p.Latitude)
		fmt.Fprintf(tw, "  Longitude\t%.4f°\n", p.Longitude)
		fmt.Fprintf(tw, "  Altitude\t%.1f km\n", p.Altitude)
		fmt.Fprintf(tw, "  Velocity\t%.0f km/h\n", p.Velocity)
		fmt.Fprintf(tw, "  Timestamp\t%s\n", time.Unix(p.Timestamp, 0).UTC().Format(time.RFC3339))
	}

	fmt.Fprintln(tw)
	if s.Crew == nil {
		fmt.Fprintln(tw, "CREW ABOARD ISS")
		fmt.Fprintln(tw, "  loading...")
	} else {
		aboard := OnISS(s.Crew.People)
		fmt.Fprintf(tw, "CREW ABOARD ISS (%d)\n", len(aboard))
		for _, person := range aboard {
			fmt.Fprintf(tw, "  %s\t%s\n", person.Name, person.Craft)
		}
	}

	if s.Err != nil {
		fmt.Fprintf(tw, "\nERROR\t%v\n", s.Err)
	}
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "\nUpdated\t%s\n", s.UpdatedAt.Format(time.TimeOnly))
	}
	return tw.Flush()
}
