package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tapdetail-backend/internal/auth"
	"tapdetail-backend/internal/availability"
	"tapdetail-backend/internal/catalog"
	"tapdetail-backend/internal/config"
	"tapdetail-backend/internal/db"
)

type seedService struct {
	Name        string
	Description string
	Price       string
	Duration    int
	Unit        string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	providerID := envOrDefault("SEED_PROVIDER_ID", "demo-provider")

	availabilityService := availability.NewService(availability.NewRepository(cols.Availability), cfg.Timezone, nil)
	created, err := availabilityService.Provision(ctx, providerID)
	if err != nil {
		log.Fatalf("seed availability error for %s: %v", providerID, err)
	}
	if created {
		log.Printf("seed availability: defaults stored for %s", providerID)
	}

	services := []seedService{
		{Name: "Exterior Hand Wash", Description: "Foam pre-wash, two-bucket hand wash and dry.", Price: "45.00", Duration: 60, Unit: catalog.UnitMinutes},
		{Name: "Interior Detail", Description: "Vacuum, steam clean and dress all interior surfaces.", Price: "120.00", Duration: 2, Unit: catalog.UnitHours},
		{Name: "Full Detail", Description: "Interior and exterior detail with wax.", Price: "220.00", Duration: 4, Unit: catalog.UnitHours},
		{Name: "Ceramic Coating", Description: "Paint correction and a two-year ceramic coat.", Price: "650.00", Duration: 8, Unit: catalog.UnitHours},
		{Name: "Headlight Restoration", Description: "Sand, polish and seal both headlights.", Price: "75.00", Duration: 45, Unit: catalog.UnitMinutes},
	}

	menu := catalog.NewMenu(catalog.NewRepository(cols.Services), cfg.Timezone)
	existing, err := menu.List(ctx, providerID)
	if err != nil {
		log.Fatalf("seed services list error: %v", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item.Slug] = true
	}

	for _, svc := range services {
		if seen[catalog.Slug(svc.Name)] {
			continue
		}
		_, err := menu.Create(ctx, providerID, catalog.ServiceRequest{
			Name:         svc.Name,
			Description:  svc.Description,
			Price:        decimal.RequireFromString(svc.Price),
			Duration:     svc.Duration,
			DurationUnit: svc.Unit,
		})
		if err != nil {
			log.Fatalf("seed error for %s: %v", svc.Name, err)
		}
	}

	if cfg.JWTSecret != "" {
		manager := &auth.Manager{Secret: []byte(cfg.JWTSecret), AccessTTL: 24 * time.Hour, Issuer: "tapdetail-backend"}
		token, err := manager.NewAccessToken(providerID)
		if err != nil {
			log.Fatalf("seed token error: %v", err)
		}
		log.Printf("seed token for %s (24h): %s", providerID, token)
	}

	log.Println("seed completed")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
