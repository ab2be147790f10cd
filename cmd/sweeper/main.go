// The sweeper eagerly closes polls whose expiry has passed but whose
// stored status is still active. Safe to run repeatedly or concurrently:
// each invocation only touches rows still matching the predicate.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/thisorthat/api/internal/adapters/repository/postgres"
	"github.com/thisorthat/api/internal/core/services"
	"github.com/thisorthat/api/internal/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	var dbHost, dbPort, dbUser, dbPass, dbName string

	flag.StringVar(&dbHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	flag.StringVar(&dbPort, "db-port", os.Getenv("POSTGRES_PORT"), "Database port")
	flag.StringVar(&dbUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	flag.StringVar(&dbPass, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	flag.StringVar(&dbName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	flag.Parse()

	log := logrus.WithField("component", "sweeper")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, dbHost, dbPort, dbName)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to reach database")
	}

	pollRepo := postgres.NewPollRepository(db)
	// The job runs out of process, so lifecycle events have no
	// subscribers here; connected clients learn about swept polls from
	// the lazy effective-status check on their next read.
	hub := realtime.NewHub(logrus.WithField("component", "hub"))
	pollService := services.NewPollService(pollRepo, hub, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info("starting expiration sweep")

	count, err := pollService.SweepExpired(ctx, time.Now())
	if err != nil {
		log.WithError(err).Fatal("sweep failed")
	}

	log.WithField("count", count).Info("sweep completed")
}
