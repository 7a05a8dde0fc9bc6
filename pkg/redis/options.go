package redis

import (
	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
)

// NewAsynqRedisOptions maps parsed go-redis options onto asynq's client
// options. Asynq manages its own connection pool, so the queue and the
// manifest/baseline clients share the URL-derived settings without sharing
// connections.
func NewAsynqRedisOptions(opt *goredis.Options) *asynq.RedisClientOpt {
	return &asynq.RedisClientOpt{
		Network:      opt.Network,
		Addr:         opt.Addr,
		Username:     opt.Username,
		Password:     opt.Password,
		DB:           opt.DB,
		DialTimeout:  opt.DialTimeout,
		ReadTimeout:  opt.ReadTimeout,
		WriteTimeout: opt.WriteTimeout,
		PoolSize:     opt.PoolSize,
		TLSConfig:    opt.TLSConfig,
	}
}
