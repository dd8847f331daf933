// Command simulator seeds a dispatch API with reference data and trips, then
// walks every assignment through its event lifecycle until the trips complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// simConfig is read from the environment.
type simConfig struct {
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api"`
	Username   string        `envconfig:"SIM_USERNAME" default:"administrador"`
	Password   string        `envconfig:"SIM_PASSWORD"`
	Token      string        `envconfig:"SIM_AUTH_TOKEN"`
	Fixture    string        `envconfig:"SIM_FIXTURE"`
	Trips      int           `envconfig:"SIM_TRIPS" default:"5"`
	Tick       time.Duration `envconfig:"SIM_TICK" default:"2s"`
	Seed       int64         `envconfig:"SIM_SEED"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Fatal("Failed to load .env")
	}
	var cfg simConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.WithError(err).Fatal("Invalid simulator configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}
}

func run(ctx context.Context, cfg simConfig) error {
	if cfg.Trips < 1 {
		return fmt.Errorf("SIM_TRIPS must be at least 1, got %d", cfg.Trips)
	}
	if cfg.Tick <= 0 {
		return fmt.Errorf("SIM_TICK must be positive, got %s", cfg.Tick)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	fx, err := loadFixture(cfg.Fixture)
	if err != nil {
		return err
	}

	client := newAPIClient(cfg.APIBaseURL, cfg.Token)
	if client.token == "" {
		if cfg.Password == "" {
			return errors.New("set SIM_AUTH_TOKEN or SIM_PASSWORD")
		}
		if err := client.login(ctx, cfg.Username, cfg.Password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"api_url": cfg.APIBaseURL,
		"trips":   cfg.Trips,
		"tick":    cfg.Tick,
	}).Info("Starting dispatch simulation")

	fl, err := seedFleet(ctx, client, fx)
	if err != nil {
		return err
	}

	active := make([]*models.Trip, 0, cfg.Trips)
	for i := 0; i < cfg.Trips; i++ {
		trip, err := createTrip(ctx, client, newTripDraft(i, fl, fx, rnd, time.Now()))
		if err != nil {
			return err
		}
		active = append(active, trip)
	}

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()
	for len(active) > 0 {
		select {
		case <-ctx.Done():
			log.WithField("open_trips", len(active)).Info("Simulation stopped")
			return nil
		case <-ticker.C:
		}

		remaining := active[:0]
		for _, trip := range active {
			next, done, err := advance(ctx, client, trip, rnd, time.Now())
			if err != nil {
				return err
			}
			if !done {
				remaining = append(remaining, next)
			}
		}
		active = remaining
	}

	log.Info("All simulated trips completed")
	return nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
