package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JssMedrano/aqualab-go/internal/config"
	"github.com/JssMedrano/aqualab-go/internal/db"
	"github.com/JssMedrano/aqualab-go/internal/devserver"
	"github.com/JssMedrano/aqualab-go/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN, db.SchemaPortal)
	if err != nil {
		log.Fatal().Err(err).Msg("db open failed")
	}

	handler := devserver.NewRouter(dbh, devserver.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigin,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).Msg("devserver listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
