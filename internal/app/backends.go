package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/MrSnakeDoc/multisite/internal/commands"
	"github.com/MrSnakeDoc/multisite/internal/config"
	"github.com/MrSnakeDoc/multisite/internal/connect"
	"github.com/MrSnakeDoc/multisite/internal/logger"
	"github.com/MrSnakeDoc/multisite/internal/redis"
	"github.com/MrSnakeDoc/multisite/internal/store"
	"github.com/MrSnakeDoc/multisite/internal/store/memory"
	mongostore "github.com/MrSnakeDoc/multisite/internal/store/mongo"
	redisstore "github.com/MrSnakeDoc/multisite/internal/store/redis"
)

func retryOptions(cfg *config.Config) connect.Options {
	return connect.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		RetryInterval:  cfg.RetryInterval,
		MaxWait:        cfg.MaxWait,
		PingTimeout:    cfg.PingTimeout,
		WarnThreshold:  cfg.WarnThreshold,
	}
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*goredis.Client, error) {
	return redis.New(ctx, redis.ConnectOptions{
		Addr:         cfg.RedisAddr,
		User:         cfg.RedisUser,
		Password:     cfg.RedisPassword,
		RedisDB:      cfg.RedisDB,
		DialTimeout:  cfg.RedisDT,
		ReadTimeout:  cfg.RedisRT,
		WriteTimeout: cfg.RedisWT,
		PoolSize:     cfg.RedisPoolSize,
		Retry:        retryOptions(cfg),
	}, log)
}

// openStore builds the configured persistence backend. The returned mongo
// client is nil for other backends.
func openStore(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, log logger.Logger) (store.Store, *mongod.Client, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, sites are lost on restart")
		return memory.New(), nil, nil

	case config.StoreRedis:
		return redisstore.NewStore(redisClient), nil, nil

	case config.StoreMongo:
		var poolSize uint64
		if cfg.MongoPoolSize > 0 {
			poolSize = uint64(cfg.MongoPoolSize)
		}
		client, err := mongostore.Connect(ctx, mongostore.ConnectOptions{
			URI:             cfg.MongoURI,
			AppName:         "multisite",
			MaxPoolSize:     poolSize,
			ServerSelection: cfg.MongoSelTimeout,
			Retry:           retryOptions(cfg),
		}, log)
		if err != nil {
			return nil, nil, err
		}
		st := mongostore.New(client.Database(cfg.MongoDatabase), mongostore.WithCollection(cfg.MongoCollection))
		if err := st.Migrate(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return st, client, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// openChannel builds the configured command channel, nil when disabled.
func openChannel(cfg *config.Config, redisClient *goredis.Client, log logger.Logger) (commands.Channel, error) {
	switch cfg.Channel {
	case config.ChannelNone:
		return nil, nil
	case config.ChannelLocal:
		return commands.NewHub().Join(cfg.NodeID, log), nil
	case config.ChannelRedis:
		return commands.NewRedisChannel(redisClient, cfg.CommandTopic, cfg.NodeID, log), nil
	default:
		return nil, fmt.Errorf("unknown channel backend %q", cfg.Channel)
	}
}
