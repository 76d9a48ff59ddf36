package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"golang.org/x/crypto/bcrypt"

	"events-system/internal/config"
	"events-system/internal/database/migrations"
	"events-system/internal/logger"
	"events-system/internal/models"
)

// Seeds the database with demo users, categories, events and
// registrations. Safe to re-run: it exits early once users exist.
func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("SEED", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("SEED", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	runner := migrations.NewRunner(db, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("SEED", fmt.Sprintf("Migrations failed: %v", err))
	}

	ctx := context.Background()
	if err := seed(ctx, db, log); err != nil {
		log.Fatal("SEED", fmt.Sprintf("Seeding failed: %v", err))
	}
	log.Info("SEED", "Database seeded successfully")
}

func seed(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	existing, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if existing > 0 {
		log.Info("SEED", "Database already seeded, nothing to do")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	users := []models.User{
		{ID: uuid.NewString(), Email: "john@test.com", FirstName: "John", LastName: "Doe"},
		{ID: uuid.NewString(), Email: "jane@test.com", FirstName: "Jane", LastName: "Smith"},
		{ID: uuid.NewString(), Email: "bob@test.com", FirstName: "Bob", LastName: "Johnson"},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		users[i].CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		return fmt.Errorf("inserting users: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("Created %d demo users", len(users)))

	categories := []models.Category{
		{Name: "Technology", Color: "#3B82F6", Icon: "cpu"},
		{Name: "Business", Color: "#EF4444", Icon: "briefcase"},
		{Name: "Health & Wellness", Color: "#10B981", Icon: "heart"},
		{Name: "Education", Color: "#F59E0B", Icon: "book"},
		{Name: "Entertainment", Color: "#8B5CF6", Icon: "film"},
		{Name: "Sports", Color: "#F97316", Icon: "trophy"},
	}
	if _, err := db.NewInsert().Model(&categories).Exec(ctx); err != nil {
		return fmt.Errorf("inserting categories: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("Created %d categories", len(categories)))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	events := make([]models.Event, 0, 150)
	for i := 1; i <= 150; i++ {
		creator := users[i%3]
		events = append(events, models.Event{
			Title:       fmt.Sprintf("Sample Event %d", i),
			Description: fmt.Sprintf("This is a description for event number %d. It's a great event that you should attend!", i),
			EventDate:   now.AddDate(0, 0, 1+rng.Intn(59)),
			Capacity:    10 + rng.Intn(90),
			IsPrivate:   i%5 == 0,
			CreatedByID: creator.ID,
			CreatedAt:   now.AddDate(0, 0, -(1 + rng.Intn(29))),
		})
	}
	if _, err := db.NewInsert().Model(&events).Exec(ctx); err != nil {
		return fmt.Errorf("inserting events: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("Created %d events", len(events)))

	var links []models.EventCategory
	for _, ev := range events {
		perm := rng.Perm(len(categories))
		for _, ci := range perm[:1+rng.Intn(3)] {
			links = append(links, models.EventCategory{
				EventID:    ev.ID,
				CategoryID: categories[ci].ID,
			})
		}
	}
	if _, err := db.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("inserting event categories: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("Linked %d event-category pairs", len(links)))

	var registrations []models.Registration
	for _, ev := range events[:50] {
		perm := rng.Perm(len(users))
		count := 1 + rng.Intn(len(users))
		if count > ev.Capacity {
			count = ev.Capacity
		}
		for _, ui := range perm[:count] {
			registrations = append(registrations, models.Registration{
				EventID:          ev.ID,
				UserID:           users[ui].ID,
				RegistrationDate: now.AddDate(0, 0, -(1 + rng.Intn(19))),
			})
		}
	}
	if _, err := db.NewInsert().Model(&registrations).Exec(ctx); err != nil {
		return fmt.Errorf("inserting registrations: %w", err)
	}
	log.Info("SEED", fmt.Sprintf("Created %d registrations", len(registrations)))

	return nil
}
