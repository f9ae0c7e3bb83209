// Command migrate runs goose against the embedded SQL migrations.
//
//	migrate [-database-url URL] [up|down|status|version|redo|reset|up-to V|down-to V]
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/presensi/attendance-api/migrations"
	"github.com/presensi/attendance-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.Init(logger.Options{Level: "info", Pretty: true, Service: "presensi-migrate"})

	var dsn string
	flag.StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()
	if dsn == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("goose dialect")
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command, args := arguments[0], arguments[1:]

	if err := goose.RunContext(context.Background(), command, db, ".", args...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("goose failed")
	}
	log.Info().Str("command", command).Msg("goose finished")
}
