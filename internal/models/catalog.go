package models

import "fmt"

// TimeSlot is a bookable start time.
type TimeSlot struct {
	Value string `yaml:"value" json:"value"` // "09:30"
	Label string `yaml:"label" json:"label"` // "9:30 AM"
}

// ServiceType is an offered service package.
type ServiceType struct {
	Code  string `yaml:"code" json:"code"`
	Name  string `yaml:"name" json:"name"`
	Price int    `yaml:"price" json:"price"` // whole dollars
}

// Display returns e.g. "Exterior Wash - $35".
func (s ServiceType) Display() string {
	if s.Price <= 0 {
		return s.Name
	}
	return fmt.Sprintf("%s - $%d", s.Name, s.Price)
}

// Catalog lists the bookable times per day and the offered services.
type Catalog struct {
	TimeSlots []TimeSlot    `yaml:"time_slots" json:"timeSlots"`
	Services  []ServiceType `yaml:"services" json:"services"`
}

// DefaultCatalog is used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		TimeSlots: []TimeSlot{
			{Value: "08:00", Label: "8:00 AM"},
			{Value: "09:30", Label: "9:30 AM"},
			{Value: "11:00", Label: "11:00 AM"},
			{Value: "12:30", Label: "12:30 PM"},
			{Value: "14:00", Label: "2:00 PM"},
			{Value: "15:30", Label: "3:30 PM"},
			{Value: "17:00", Label: "5:00 PM"},
		},
		Services: []ServiceType{
			{Code: "exterior", Name: "Exterior Wash", Price: 35},
			{Code: "full", Name: "Exterior and Interior", Price: 85},
			{Code: "detail", Name: "Full Detail", Price: 120},
		},
	}
}

// HasTime reports whether value is one of the bookable times.
func (c *Catalog) HasTime(value string) bool {
	for _, s := range c.TimeSlots {
		if s.Value == value {
			return true
		}
	}
	return false
}

// Service looks up a service by code.
func (c *Catalog) Service(code string) (ServiceType, bool) {
	for _, s := range c.Services {
		if s.Code == code {
			return s, true
		}
	}
	return ServiceType{}, false
}

// ServiceDisplay returns the display name for code, or code itself if unknown.
func (c *Catalog) ServiceDisplay(code string) string {
	if s, ok := c.Service(code); ok {
		return s.Display()
	}
	return code
}

// Validate checks the catalog is usable.
func (c *Catalog) Validate() error {
	if len(c.TimeSlots) == 0 {
		return fmt.Errorf("catalog has no time slots")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("catalog has no services")
	}
	seen := make(map[string]bool, len(c.TimeSlots))
	for _, s := range c.TimeSlots {
		if len(s.Value) != 5 || s.Value[2] != ':' {
			return fmt.Errorf("invalid time slot %q; expected HH:MM", s.Value)
		}
		if seen[s.Value] {
			return fmt.Errorf("duplicate time slot %q", s.Value)
		}
		seen[s.Value] = true
	}
	return nil
}
