package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ContentStudio-server/config"
	"ContentStudio-server/logger"
	"ContentStudio-server/models"
	"ContentStudio-server/routers"
	"ContentStudio-server/routers/api"
	"ContentStudio-server/service"
	"ContentStudio-server/websocket"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

func main() {
	app := &cli.Command{
		Name:  "contentstudio",
		Usage: "Content generation API: themes, scripts, carousels and narrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultPath,
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update database tables",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "Migrate and insert default settings and topics",
				Action: seed,
			},
			{
				Name:  "create-admin",
				Usage: "Create an administrator, or promote and reset an existing user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nome", Value: "Administrador", Usage: "Display name"},
					&cli.StringFlag{Name: "email", Required: true, Usage: "Login e-mail"},
					&cli.StringFlag{Name: "senha", Required: true, Usage: "Password (min. 6 characters)"},
				},
				Action: createAdmin,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal("application error", "err", err)
	}
}

// setup loads config, installs the logger and opens the database.
func setup(cmd *cli.Command) (*config.Config, *log.Logger, *gorm.DB, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	l := logger.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := models.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	l.Info("database connected", "driver", cfg.Database.Driver)
	return cfg, l, db, nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	_, l, db, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}
	l.Info("migrations applied")
	return nil
}

func seed(ctx context.Context, cmd *cli.Command) error {
	_, l, db, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}
	if err := models.Seed(db); err != nil {
		return err
	}
	l.Info("seed complete")
	return nil
}

func createAdmin(ctx context.Context, cmd *cli.Command) error {
	_, l, db, err := setup(cmd)
	if err != nil {
		return err
	}
	if len(cmd.String("senha")) < 6 {
		return errors.New("--senha must have at least 6 characters")
	}
	if err := models.Migrate(db); err != nil {
		return err
	}
	u, err := models.EnsureAdmin(db, cmd.String("nome"), cmd.String("email"), cmd.String("senha"))
	if err != nil {
		return err
	}
	l.Info("admin ready", "id", u.ID, "email", u.Email)
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, l, db, err := setup(cmd)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	if err := models.Migrate(db); err != nil {
		return err
	}
	if err := models.Seed(db); err != nil {
		return err
	}

	configs := service.NewConfigManager(db, service.ConfigDefaults(cfg), cfg.Cache.ConfigTTL(), nil)
	speech := service.NewSpeechService(configs, service.NewElevenLabsClient(cfg.AI.Timeout()))
	content := service.NewContentService(configs, service.NewOpenRouterClient(cfg.AI.OpenRouterURL, cfg.AI.Timeout()))

	audio, err := service.NewAudioCache(cfg.Storage.AudioDir, nil)
	if err != nil {
		return err
	}

	var objects service.ObjectStore
	if cfg.MinIO.Enabled {
		store, err := service.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return err
		}
		objects = store
	}

	hub := websocket.NewHub(cfg.Server.AllowedOrigins)
	narrations := service.NewNarrationService(db, speech, audio, objects, hub)

	var jobs service.Dispatcher
	var stopJobs func()
	if cfg.Redis.Enabled() {
		queue := service.NewQueue(cfg.Redis)
		processor := service.NewProcessor(cfg.Redis, cfg.Worker, narrations)
		if err := processor.Start(); err != nil {
			return fmt.Errorf("start processor: %w", err)
		}
		jobs = queue
		stopJobs = func() {
			processor.Shutdown()
			_ = queue.Close()
		}
		l.Info("narration jobs use redis", "addr", cfg.Redis.Addr)
	} else {
		inline := service.NewInlineDispatcher(narrations.Process)
		jobs = inline
		stopJobs = inline.Wait
		l.Warn("redis not configured, narration jobs run in-process")
	}

	h := &api.Handler{
		DB:         db,
		Config:     cfg,
		Configs:    configs,
		Content:    content,
		Speech:     speech,
		Narrations: narrations,
		Jobs:       jobs,
		Audio:      audio,
		Hub:        hub,
	}
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           routers.InitRouter(h, l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", "addr", cfg.Server.Port, "mock_mode", cfg.AI.MockMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("http shutdown", "err", err)
	}
	stopJobs()
	return nil
}
