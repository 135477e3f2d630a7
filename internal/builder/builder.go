package builder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-ugi/internal/agent/blunder"
	"github.com/park285/cheese-ugi/internal/agent/movecache"
	"github.com/park285/cheese-ugi/internal/agent/random"
	"github.com/park285/cheese-ugi/internal/config"
	"github.com/park285/cheese-ugi/internal/engine"
	"github.com/park285/cheese-ugi/internal/game"
	"github.com/park285/cheese-ugi/internal/game/chessgame"
	"github.com/park285/cheese-ugi/internal/journal"
	"github.com/park285/cheese-ugi/internal/msgcat"
)

// Deps holds everything a session needs that outlives the session.
type Deps struct {
	Game     game.Game
	Messages *msgcat.Catalog
	Redis    *redis.Client
	DB       *sql.DB
	Journal  journal.Repository

	cfg *config.AppConfig
	log *zap.Logger
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d := &Deps{Game: chessgame.New(), Messages: msgs, cfg: cfg, log: logger}

	// Redis (optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			_ = d.Redis.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("move cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.MoveCacheTTL))
	}

	// Postgres (optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, repo, err := journal.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.DB, d.Journal = db, repo
		logger.Info("search journal enabled")
	}

	return d, nil
}

// NewAgent builds the configured agent for one session: the base agent, then
// the move cache, then the journal.
func (d *Deps) NewAgent(sessionID string) engine.Behavior {
	info := engine.EngineInfo{Name: d.cfg.EngineName, Author: d.cfg.EngineAuthor}
	log := d.log.With(zap.String("session", sessionID))

	var b engine.Behavior
	switch d.cfg.Agent {
	case config.AgentBlunder:
		b = blunder.New(info, log)
	default:
		b = random.New(random.WithSeed(d.cfg.RandomSeed), random.WithInfo(info))
	}
	if d.Redis != nil {
		b = movecache.New(b, d.Redis, d.cfg.MoveCacheTTL, log)
	}
	if d.Journal != nil {
		b = journal.NewRecorder(b, d.Journal, sessionID, log)
	}
	return b
}

func (d *Deps) Close() error {
	var errs []error
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if u.Path != "" {
		p := strings.TrimPrefix(u.Path, "/")
		if p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				db = n
			}
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}, nil
}
