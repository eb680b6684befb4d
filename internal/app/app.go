package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	handler "kinobot/api"
	"kinobot/internal/bot"
	"kinobot/internal/broadcast"
	"kinobot/internal/config"
	"kinobot/internal/logger"
	"kinobot/internal/storage"
	"kinobot/internal/subscription"
	"kinobot/internal/tg"
	"kinobot/internal/wizard"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of one bot process.
type App struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	client  *tg.Client
	backend storage.Backend
	fanout  *broadcast.Fanout
	bot     *bot.Bot
	digest  *cron.Cron

	queue *dispatcher
}

func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	log = logger.OrNop(log)

	backend, err := storage.Open(ctx, storage.Options{
		Kind:          cfg.StorageBackend,
		Dir:           cfg.DataDir,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		RedisAddr:     cfg.RedisAddr,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	client, err := tg.NewClient(cfg.BotToken, log)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	catalog := storage.NewCatalog(backend, log)
	users := storage.NewRegistry(backend, log)
	fanout := broadcast.New(client, users, cfg.AdminID, cfg.BroadcastDelay, log)
	b := bot.New(bot.Deps{
		Messenger:   client,
		Catalog:     catalog,
		Users:       users,
		Gate:        subscription.NewGate(client, cfg.RequiredChannel, log),
		Broadcaster: fanout,
		Sessions:    wizard.NewSessions(),
		Log:         log,
	}, bot.Options{AdminID: cfg.AdminID, SupportHandle: cfg.SupportHandle})

	a := &App{cfg: cfg, log: log, client: client, backend: backend, fanout: fanout, bot: b, queue: newDispatcher(b.Handle)}
	if cfg.DigestCron != "" {
		if a.digest, err = newDigest(cfg.DigestCron, b, log); err != nil {
			_ = backend.Close()
			return nil, err
		}
	}
	return a, nil
}

func newDigest(spec string, b *bot.Bot, log *zap.SugaredLogger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		b.NotifyAdmin(ctx, b.StatsText(ctx))
		log.Infow("statistics digest sent")
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dispatch queues ev without blocking. Events of one chat are handled in arrival order.
func (a *App) Dispatch(ctx context.Context, ev tg.Event) {
	a.queue.dispatch(ctx, ev)
}

// Run serves updates until ctx is cancelled, then waits for in-flight handlers and
// broadcasts to finish.
func (a *App) Run(ctx context.Context) error {
	a.announce(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Polling() {
		a.log.Infow("bot started", "mode", "polling")
		g.Go(func() error {
			err := a.client.Poll(gctx, func(ev tg.Event) { a.Dispatch(gctx, ev) })
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		a.log.Infow("bot started", "mode", "webhook", "port", a.cfg.Port)
		srv := handler.NewServer(":"+a.cfg.Port, a.cfg.WebhookSecret, func(ev tg.Event) { a.Dispatch(gctx, ev) }, a.log)
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		url := strings.TrimRight(a.cfg.WebhookURL, "/") + handler.WebhookRoute(a.cfg.WebhookSecret)
		if err := a.client.SetWebhook(ctx, url); err != nil {
			a.log.Errorw("set webhook failed", "url", url, "err", err)
			a.bot.NotifyAdmin(ctx, "⚠️ Botda webhook xato: "+err.Error())
		}
	}

	if a.digest != nil {
		a.digest.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-a.digest.Stop().Done()
			return nil
		})
	}

	err := g.Wait()
	a.queue.wait()
	a.fanout.Wait()
	a.log.Info("bot stopped")
	return err
}

func (a *App) announce(ctx context.Context) {
	if err := a.client.SetCommands(ctx, bot.Commands()); err != nil {
		a.log.Warnw("set commands failed", "err", err)
	}
	a.bot.NotifyAdmin(ctx, "✅ Bot ishga tushdi")
}

func (a *App) Close() error {
	return a.backend.Close()
}
