package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/nhle/portal-notify/internal/credential"
	"github.com/nhle/portal-notify/internal/journal"
	"github.com/nhle/portal-notify/internal/logging"
	"github.com/nhle/portal-notify/internal/model"
	"github.com/nhle/portal-notify/internal/notify"
	"github.com/nhle/portal-notify/internal/push"
	"github.com/nhle/portal-notify/internal/source/portal"
)

// env is the process-wide wiring shared by the subcommands.
type env struct {
	cfg     *model.AppConfig
	logger  *zap.Logger
	journal *journal.Journal
	creds   *credential.Store
	closers []func()
}

// loadEnv reads config and builds the logger and journal. Interactive
// commands log to the configured file so the terminal stays clean.
func loadEnv(logToFile bool) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{Level: cfg.Log.Level, Development: cfg.Log.Development}
	if logToFile {
		opts.File = cfg.Log.File
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, creds: credential.New()}
	e.closers = append(e.closers, func() { _ = logger.Sync() })

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Warn("journal disabled", zap.String("path", cfg.Journal.Path), zap.Error(err))
		} else {
			e.journal = j
			e.closers = append(e.closers, func() { _ = j.Close() })
		}
	}
	return e, nil
}

// Close releases everything loadEnv and its helpers opened, newest first.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// session resolves the configured user and the stored token.
func (e *env) session() (model.Session, error) {
	token, err := e.creds.Token(e.cfg.Session.Profile)
	if err != nil {
		return model.Session{}, err
	}
	sess := e.cfg.NewSession(token)
	if sess.UserID == "" {
		return model.Session{}, errors.New("session.user_id is not set; run `portal-notify login`")
	}
	return sess, nil
}

// remote builds the portal adapter for sess.
func (e *env) remote(sess model.Session) *portal.Adapter {
	client := portal.NewClient(e.cfg.Portal.BaseURL, sess.Token,
		portal.WithRateLimit(e.cfg.Portal.RequestsPerSec, 2),
		portal.WithLogger(e.logger),
	)
	return portal.NewAdapter(client)
}

// recorder returns the journal as an interface, or nil when disabled.
func (e *env) recorder() notify.Journal {
	if e.journal == nil {
		return nil
	}
	return e.journal
}

// pushManager opens channels over the configured transport.
func (e *env) pushManager() (*push.Manager, error) {
	switch e.cfg.Portal.Transport {
	case model.TransportRedis:
		client := redis.NewClient(push.RedisOptions(
			e.cfg.Portal.RedisAddr,
			e.cfg.Portal.RedisPassword,
			e.cfg.Portal.RedisDB,
		))
		e.closers = append(e.closers, func() { _ = client.Close() })
		return push.NewManager(push.RedisFactory(client, e.cfg.Portal.RedisPrefix, e.logger), e.logger), nil
	case model.TransportWebSocket:
		return push.NewManager(push.WebSocketFactory(e.cfg.Portal.PushURL, push.WithWSLogger(e.logger)), e.logger), nil
	default:
		return nil, fmt.Errorf("unknown push transport %q", e.cfg.Portal.Transport)
	}
}

// center wires a notification center with push enabled.
func (e *env) center() (*notify.Center, error) {
	mgr, err := e.pushManager()
	if err != nil {
		return nil, err
	}
	return notify.New(notify.Options{
		Remote:       func(sess model.Session) notify.Remote { return e.remote(sess) },
		Push:         mgr,
		Journal:      e.recorder(),
		Logger:       e.logger,
		PollInterval: time.Duration(e.cfg.Sync.PollIntervalSec) * time.Second,
		SyncTimeout:  time.Duration(e.cfg.Sync.TimeoutSec) * time.Second,
		Limit:        e.cfg.Sync.Limit,
	}), nil
}
