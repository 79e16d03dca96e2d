// Command seed creates a demo concert with tickets and prints a promoter
// bearer token for the backstage routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/concert-ticketing/internal/config"
	"github.com/iliyamo/concert-ticketing/internal/database"
	"github.com/iliyamo/concert-ticketing/internal/inventory"
	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/middleware"
	"github.com/iliyamo/concert-ticketing/internal/repository"
	"github.com/iliyamo/concert-ticketing/internal/utils"
)

func main() {
	opts := defaultOptions()
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	opts.addFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	_ = godotenv.Load()
	log := logger.New(logger.LevelInfo)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	if cfg.StoreDriver != config.StoreMySQL {
		log.Fatal("SEED", "seeding needs STORE_DRIVER=mysql; the memory store lives inside the server process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("SEED", err.Error())
	}

	concerts := repository.NewConcertRepo(db)
	inv := inventory.New(repository.NewTicketRepo(db), inventory.NewLocalLocker(0), log)
	concert, err := seedConcert(ctx, concerts, inv, opts, time.Now)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}
	log.LogProcess("SEED", fmt.Sprintf("concert %d %q with %d tickets, published=%t", concert.ID, concert.Title, opts.Tickets, concert.IsPublished()))

	tok, err := utils.NewAccessToken(cfg.JWTSecret, opts.PromoterID, middleware.RolePromoter, cfg.AccessTTLMin)
	if err != nil {
		log.Fatal("SEED", err.Error())
	}
	fmt.Printf("concert_id=%d\npromoter_token=%s\nexpires=%s\n", concert.ID, tok.Token, tok.Exp.Format(time.RFC3339))
}
