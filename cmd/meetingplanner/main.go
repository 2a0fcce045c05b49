package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/urfave/cli/v2"

	"meeting-planner/internal/api"
	"meeting-planner/internal/bot"
	"meeting-planner/internal/config"
	"meeting-planner/internal/events"
	"meeting-planner/internal/filewatch"
	"meeting-planner/internal/recurrence"
	"meeting-planner/internal/repository"
	"meeting-planner/internal/service"
	"meeting-planner/internal/subscriber"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "meetingplanner",
		Usage: "Schedule meetings, recurring series and their tasks.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "log level. debug|info|warn|error|off (overrides the config)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			listenCommand(),
			migrateCommand(),
			nextCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("meetingplanner failed: %v", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("can not read configuration: %w", err)
	}
	if lvl := c.String("loglevel"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, known := api.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)
	if !known {
		log.Warnf("unknown loglevel: %s . fall-backed to warn", cfg.LogLevel)
	}
	return cfg, nil
}

// planner is everything a long-running command needs.
type planner struct {
	cfg    *config.Config
	store  *repository.Store
	broker events.Broker
	svc    api.Services

	close func()
}

func openPlanner(ctx context.Context, cfg *config.Config) (*planner, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var broker events.Broker
	if cfg.BrokerURL != "" {
		broker, err = events.NewPostgresBroker(ctx, cfg.BrokerURL)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		log.Infof("events go through postgres")
	} else {
		broker = events.NewMemoryBroker()
		log.Infof("events stay in process")
	}

	store := repository.NewStore(db)
	return &planner{
		cfg:    cfg,
		store:  store,
		broker: broker,
		svc: api.Services{
			Meetings:    service.NewMeetingService(store, broker),
			Recurrences: service.NewRecurrenceService(store),
			Tasks:       service.NewTaskService(store),
			Users:       service.NewUserService(store),
		},
		close: func() {
			if err := broker.Close(); err != nil {
				log.Warnf("close broker: %v", err)
			}
			sqlDB.Close()
		},
	}, nil
}

func (p *planner) listener() *subscriber.Listener {
	router := subscriber.NewRouter(p.svc.Users, p.svc.Tasks)
	return subscriber.NewListener(p.broker, router, p.cfg.EventChannels, p.cfg.ResubscribeDelay)
}

// notifier starts the Telegram bot and its scheduled jobs. It returns a nil
// stop function when no token is configured.
func (p *planner) notifier(ctx context.Context, wg *sync.WaitGroup) (func(), error) {
	if !p.cfg.NotifierEnabled() {
		log.Info("no telegram token, notifier disabled")
		return nil, nil
	}
	loc, err := p.cfg.Location()
	if err != nil {
		return nil, err
	}

	reminders := service.NewReminderService(p.store, p.cfg.ReminderLead, loc)
	telegramBot, err := bot.New(p.cfg.TelegramToken, p.svc.Users, p.svc.Tasks, reminders)
	if err != nil {
		return nil, err
	}

	scheduler := service.NewSchedulerService(loc, p.cfg.JobTimeout)
	if _, err := scheduler.ScheduleInterval("reminders", p.cfg.ReminderInterval, telegramBot.SendReminders); err != nil {
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := scheduler.ScheduleDaily("agenda", p.cfg.AgendaTime, telegramBot.SendDailyAgendas); err != nil {
		return nil, fmt.Errorf("schedule agenda: %w", err)
	}
	scheduler.Start()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("bot stopped with error: %v", err)
		}
	}()
	return scheduler.Stop, nil
}

// signalContext is canceled on SIGINT/SIGTERM and, when a config file is in
// use, on any change to it.
func signalContext(c *cli.Context) (context.Context, func(), error) {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	path := c.String("config")
	if path == "" {
		return ctx, stop, nil
	}
	wctx, cancel, err := filewatch.UntilModifyContext(ctx, path)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("can not watch configuration: %w", err)
	}
	return wctx, func() { cancel(); stop() }, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, the event listener and the notifier.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-listener", Usage: "do not consume events"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			ctx, stop, err := signalContext(c)
			if err != nil {
				return err
			}
			defer stop()

			p, err := openPlanner(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.close()

			var wg sync.WaitGroup
			if !c.Bool("no-listener") {
				l := p.listener()
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := l.Run(ctx); err != nil {
						log.Errorf("listener stopped: %v", err)
					}
				}()
			}

			stopJobs, err := p.notifier(ctx, &wg)
			if err != nil {
				return err
			}
			if stopJobs != nil {
				defer stopJobs()
			}

			e := api.BuildServer(p.svc, cfg.LogLevel)
			serverErr := make(chan error, 1)
			go func() {
				log.Infof("listening on %s", cfg.ListenAddr)
				if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ctx.Done():
				log.Infof("shutting down: %v", context.Cause(ctx))
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Warnf("error on shutdown: %v", err)
			}
			wg.Wait()
			log.Info("shutdown complete")
			return nil
		},
	}
}

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Consume user and meeting events only.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.BrokerURL == "" {
				log.Warn("no broker_url configured; only in-process events can arrive")
			}
			ctx, stop, err := signalContext(c)
			if err != nil {
				return err
			}
			defer stop()

			p, err := openPlanner(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.close()

			return p.listener().Run(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the database schema.",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			// NewDB migrates on open.
			db, err := repository.NewDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.Infof("database %s is up to date", cfg.DatabaseURL)
			return nil
		},
	}
}

func nextCommand() *cli.Command {
	return &cli.Command{
		Name:      "next",
		Usage:     "Print the next occurrences of a recurrence rule.",
		ArgsUsage: "RRULE",
		Flags: []cli.Flag{
			&cli.TimestampFlag{
				Name:   "after",
				Usage:  "anchor of the rule, inclusive (RFC 3339, default now)",
				Layout: time.RFC3339,
			},
			&cli.IntFlag{Name: "count", Value: 1, Usage: "number of occurrences to print"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one RRULE is required", 2)
			}
			after := time.Now().UTC().Truncate(time.Second)
			if ts := c.Timestamp("after"); ts != nil {
				after = *ts
			}

			rule, err := recurrence.Parse(c.Args().First(), after)
			if err != nil {
				return cli.Exit(fmt.Sprintf("invalid recurrence rule: %v", err), 2)
			}
			next, inclusive := after, true
			for i := 0; i < c.Int("count"); i++ {
				t, ok := rule.Next(next, inclusive)
				if !ok {
					if i == 0 {
						return cli.Exit("no future dates found in the recurrence rule", 1)
					}
					break
				}
				fmt.Fprintln(c.App.Writer, t.UTC().Format(time.RFC3339))
				next, inclusive = t, false
			}
			return nil
		},
	}
}
