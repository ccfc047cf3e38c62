package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"gopkg.in/urfave/cli.v1"

	"github.com/theotime2005/blocklucky/internal/chain"
	"github.com/theotime2005/blocklucky/internal/config"
	"github.com/theotime2005/blocklucky/internal/handlers"
	"github.com/theotime2005/blocklucky/internal/models"
	"github.com/theotime2005/blocklucky/internal/services"
	"github.com/theotime2005/blocklucky/internal/store"
)

// keeperIdentity is the caller the background keeper signs its draws with.
var keeperIdentity = common.HexToAddress("0x000000000000000000000000000000000000bee5")

func main() {
	defer logger.Init("blocklucky", true, false, io.Discard).Close()

	app := cli.NewApp()
	app.Name = "blocklucky"
	app.Usage = "run the BlockLucky lottery"
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "start the HTTP server",
			Action: serve,
		},
		{
			Name:  "commitment",
			Usage: "print the commitment hash for a seed",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "seed", Usage: "secret seed to commit to"},
			},
			Action: commitment,
		},
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("blocklucky: %v", err)
	}
}

func commitment(c *cli.Context) error {
	seed := c.String("seed")
	if seed == "" {
		return errors.New("--seed is required")
	}
	fmt.Println(services.CommitmentFor(seed).Hex())
	return nil
}

func serve(c *cli.Context) error {
	// 1. Resolve configuration from .env, environment and deployment file.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Set up the ledger and the optional round archive.
	ledger := chain.NewSimulated()
	bank := chain.NewBank()
	opts := services.Options{
		Owner:  cfg.Owner,
		Chain:  ledger,
		Payout: bank,
		Config: models.Configuration{
			TicketPrice:     cfg.Lottery.TicketPrice,
			MaxParticipants: cfg.Lottery.MaxParticipants,
			RoundDuration:   cfg.Lottery.RoundDuration,
		},
		RevealWindow:     cfg.Lottery.RevealWindow,
		MinRoundDuration: cfg.Lottery.MinRoundDuration,
		ManualReset:      cfg.Lottery.ManualReset,
	}
	if cfg.DBPath != "" {
		archive, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer archive.Close()
		opts.Archive = archive
	}

	// 3. Deploy the lottery.
	lottery, err := services.NewLottery(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start the background keeper that forces draws past the deadline.
	if cfg.KeeperInterval > 0 {
		go services.NewKeeper(lottery, keeperIdentity, cfg.KeeperInterval).Run(ctx)
		logger.Infof("Keeper polling every %s", cfg.KeeperInterval)
	}

	// 5. Set up the Gin router.
	var dev handlers.TimeTraveler
	if cfg.DevMode {
		dev = ledger
		logger.Warning("Dev mode enabled: ledger time can be advanced over HTTP")
	}
	r := gin.Default()
	handlers.NewHTTPHandler(lottery, dev).RegisterRoutes(r)

	// 6. Run the server until interrupted.
	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Server starting on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}
