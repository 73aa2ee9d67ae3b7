package kvstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"notibroker/pkg/logx"
)

// redisEngine namespaces every key under "<namespace>:" so several brokers
// can share one Redis instance. A background ping loop drives the liveness
// callbacks: the preference store falls back to its cache while the
// connection is down and reloads once it returns.
type redisEngine struct {
	rdb *redis.Client
	ns  string
	log logx.Logger

	mu    sync.Mutex
	state []func(alive bool)
	alive bool

	stop chan struct{}
	done chan struct{}
}

func openRedis(cfg Config, log logx.Logger) (Engine, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("kvstore: redis addr is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "notibroker"
	}
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	e := &redisEngine{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ns:    ns,
		log:   log,
		alive: true,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go e.pingLoop(interval)
	return e, nil
}

func (e *redisEngine) key(k string) string { return e.ns + ":" + k }

func (e *redisEngine) Get(ctx context.Context, key string) (string, error) {
	v, err := e.rdb.Get(ctx, e.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

func (e *redisEngine) Put(ctx context.Context, key, value string) error {
	return e.rdb.Set(ctx, e.key(key), value, 0).Err()
}

func (e *redisEngine) Delete(ctx context.Context, key string) error {
	return e.rdb.Del(ctx, e.key(key)).Err()
}

func (e *redisEngine) List(ctx context.Context, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	var cursor uint64
	match := e.key(prefix) + "*"
	for {
		keys, next, err := e.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			v, err := e.rdb.Get(ctx, k).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[strings.TrimPrefix(k, e.ns+":")] = v
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (e *redisEngine) OnState(fn func(alive bool)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.state = append(e.state, fn)
	e.mu.Unlock()
}

func (e *redisEngine) pingLoop(interval time.Duration) {
	defer close(e.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := e.rdb.Ping(ctx).Err()
			cancel()
			e.setAlive(err == nil)
		}
	}
}

func (e *redisEngine) setAlive(alive bool) {
	e.mu.Lock()
	changed := e.alive != alive
	e.alive = alive
	fns := append([]func(bool){}, e.state...)
	e.mu.Unlock()
	if !changed {
		return
	}
	if alive {
		e.log.Info("redis kv engine reconnected")
	} else {
		e.log.Warn("redis kv engine lost connection")
	}
	for _, fn := range fns {
		fn(alive)
	}
}

func (e *redisEngine) Close() error {
	select {
	case <-e.stop:
	default:
		close(e.stop)
		<-e.done
	}
	return e.rdb.Close()
}
