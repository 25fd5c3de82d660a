package alerting

import (
	"fmt"
	"strings"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// ComposeMessage renders the notification body from whatever res resolved.
// At most listNearby nearby places are listed.
func ComposeMessage(res *domain.AlertResult, listNearby int) string {
	var b strings.Builder

	if res.Alert.Manual {
		b.WriteString("TEST ALERT (manual trigger)\n")
	}
	b.WriteString("DRIVER FATIGUE DETECTED!\n")
	fmt.Fprintf(&b, "Attention score %s (threshold %.1f)\n", res.Alert.Reading.Score, res.Alert.Threshold)

	switch {
	case res.AssistancePoint != nil:
		poi := res.AssistancePoint
		b.WriteString("\nNearest rest stop:\n")
		b.WriteString(poi.Name + "\n")
		if poi.Address != "" {
			b.WriteString(poi.Address + "\n")
		}
		fmt.Fprintf(&b, "%.1f miles %s\n", res.DistanceMiles, res.Direction)
	case res.Location != nil:
		fmt.Fprintf(&b, "\nCurrent location: %s", res.Location.Coordinate)
		if place := placeName(res.Location); place != "" {
			fmt.Fprintf(&b, " (%s)", place)
		}
		b.WriteString("\n")
	default:
		b.WriteString("\nLocation unavailable.\n")
	}

	if len(res.Nearby) > 0 {
		b.WriteString("\nNearby restaurants:\n")
		for i, p := range res.Nearby {
			if i == listNearby {
				break
			}
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Name, rating(p.Rating))
		}
	}

	b.WriteString("\nPlease take a break for safety!")
	return b.String()
}

func rating(r float64) string {
	if r <= 0 {
		return "no rating"
	}
	return fmt.Sprintf("rated %.1f", r)
}

func placeName(loc *domain.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
