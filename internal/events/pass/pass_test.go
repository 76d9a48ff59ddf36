package pass_test

import (
	"bytes"
	"testing"
	"time"

	"events-system/internal/events/pass"
	"events-system/internal/models"
)

func TestGeneratePass(t *testing.T) {
	generator := pass.NewGenerator("test-secret-key")

	registration := models.Registration{
		ID:               1,
		EventID:          42,
		UserID:           "u1",
		RegistrationDate: time.Now(),
	}
	event := models.EventSummary{
		ID:        42,
		Title:     "Go Conference",
		EventDate: time.Now().Add(72 * time.Hour),
	}

	png, err := generator.GeneratePass(registration, event)
	if err != nil {
		t.Fatalf("Failed to generate pass: %v", err)
	}

	if len(png) == 0 {
		t.Error("Generated pass is empty")
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("Generated pass is not a PNG image")
	}
}

func TestGeneratePass_DifferentRegistrationsDiffer(t *testing.T) {
	generator := pass.NewGenerator("test-secret-key")

	first, err := generator.GeneratePass(
		models.Registration{ID: 1, EventID: 1, UserID: "u1"},
		models.EventSummary{ID: 1, Title: "Meetup"},
	)
	if err != nil {
		t.Fatalf("Failed to generate first pass: %v", err)
	}
	second, err := generator.GeneratePass(
		models.Registration{ID: 2, EventID: 2, UserID: "u2"},
		models.EventSummary{ID: 2, Title: "Workshop"},
	)
	if err != nil {
		t.Fatalf("Failed to generate second pass: %v", err)
	}

	if bytes.Equal(first, second) {
		t.Error("Expected different registrations to produce different passes")
	}
}
