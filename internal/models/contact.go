package models

import (
	"strings"
	"time"
)

// ContactMessage is a general inquiry from the contact form.
type ContactMessage struct {
	Name        string    `json:"name" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone,omitempty"`
	Message     string    `json:"message" validate:"required"`
	SubmittedAt time.Time `json:"timestamp"`
}

// Normalize trims surrounding whitespace.
func (m *ContactMessage) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Message = strings.TrimSpace(m.Message)
}
