package slots

import (
	"context"
	"fmt"
	"time"

	"detailing/internal/models"
)

const dateLayout = "2006-01-02"

// SlotInfo is a simplified representation for UI.
type SlotInfo struct {
	Time      string `json:"value"` // "09:30"
	Label     string `json:"label"` // "9:30 AM"
	Booked    bool   `json:"booked"`
	Past      bool   `json:"past"`
	Available bool   `json:"available"`
}

// BookedTimesLister returns the occupied times for a date.
type BookedTimesLister interface {
	BookedTimes(ctx context.Context, date string) ([]string, error)
}

// Generator lays the catalog's time slots over a date.
type Generator struct {
	lister BookedTimesLister
	loc    *time.Location
	now    func() time.Time
}

// NewGenerator creates a new slot generator. Slot times are interpreted in loc.
func NewGenerator(lister BookedTimesLister, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{lister: lister, loc: loc, now: time.Now}
}

// GenerateSlots returns every catalog slot for date with its availability.
// Slots that already started are reported as past and unavailable.
func (g *Generator) GenerateSlots(ctx context.Context, date string, catalog *models.Catalog) ([]SlotInfo, error) {
	day, err := time.ParseInLocation(dateLayout, date, g.loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}

	booked := map[string]bool{}
	if g.lister != nil {
		times, err := g.lister.BookedTimes(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("booked times: %w", err)
		}
		for _, t := range times {
			booked[t] = true
		}
	}

	now := g.now()
	result := make([]SlotInfo, 0, len(catalog.TimeSlots))
	for _, ts := range catalog.TimeSlots {
		start, err := parseTimeOnDate(day, ts.Value)
		if err != nil {
			return nil, err
		}
		past := start.Before(now)
		result = append(result, SlotInfo{
			Time:      ts.Value,
			Label:     ts.Label,
			Booked:    booked[ts.Value],
			Past:      past,
			Available: !booked[ts.Value] && !past,
		})
	}
	return result, nil
}

// GetAvailableSlots returns only available slots.
func GetAvailableSlots(slots []SlotInfo) []SlotInfo {
	var available []SlotInfo
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

func parseTimeOnDate(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s", hhmm)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
