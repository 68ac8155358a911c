package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Backends selectable through MULTISITE_STORE.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Transports selectable through MULTISITE_CHANNEL.
const (
	ChannelNone  = "none"
	ChannelLocal = "local"
	ChannelRedis = "redis"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Sites
	Multisite      bool          // serve tenant sites; false => global site only
	SiteName       string        // display name of the global site
	GlobalHostname string        // hostname of the global site, required in multisite mode
	NodeID         string        // identifies this process on the command channel
	SeedFile       string        // optional YAML file of sites to import at startup
	SyncInterval   time.Duration // registry reconciliation interval (default: 5m)
	CommandTimeout time.Duration // how long an initiator collects peer responses
	TemplateLocale string        // fallback locale for public pages

	// Backends
	Store        string // "memory" | "redis" | "mongo"
	Channel      string // "none" | "local" | "redis"
	CommandTopic string // Redis pub/sub channel for commands

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisPoolSize         int           // Redis connection pool size

	// MongoDB
	MongoURI        string        // ex: "mongodb://localhost:27017"
	MongoDatabase   string        // database holding the sites collection
	MongoCollection string        // collection name (default: sites)
	MongoPoolSize   int           // max pool size, 0 = driver default
	MongoSelTimeout time.Duration // server selection timeout

	// Connection retry, shared by every backend
	ConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	WarnThreshold  int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict admin routes to specific IPs or CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	AdminRateBurst     int // admin write burst per IP (default: 20, 0 = unlimited)
	AdminRatePerMinute int // admin write refill per IP (default: 60)
}

func Load() *Config {
	loadDotEnv(getenv("MULTISITE_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MULTISITE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MULTISITE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MULTISITE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MULTISITE_PRETTY_LOG", true),

		// Sites
		Multisite:      mustBool("MULTISITE_ENABLED", false),
		SiteName:       getenv("MULTISITE_SITE_NAME", "Main"),
		GlobalHostname: strings.ToLower(getenv("MULTISITE_GLOBAL_HOSTNAME", "")),
		NodeID:         getenv("MULTISITE_NODE_ID", defaultNodeID()),
		SeedFile:       getenv("MULTISITE_SEED_FILE", ""), // Optional, empty = no import
		SyncInterval:   mustDuration("MULTISITE_SYNC_INTERVAL", 5*time.Minute),
		CommandTimeout: mustDuration("MULTISITE_COMMAND_TIMEOUT", 5*time.Second),
		TemplateLocale: getenv("MULTISITE_DEFAULT_LOCALE", "en"),

		// Backends
		Store:        mustOneOf("MULTISITE_STORE", StoreRedis, StoreMemory, StoreRedis, StoreMongo),
		Channel:      mustOneOf("MULTISITE_CHANNEL", ChannelRedis, ChannelNone, ChannelLocal, ChannelRedis),
		CommandTopic: getenv("MULTISITE_COMMAND_TOPIC", "multisite:commands"),

		// Redis settings
		RedisAddr:             getenv("MULTISITE_REDIS_ADDR", ""),
		RedisUser:             getenv("MULTISITE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MULTISITE_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("MULTISITE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MULTISITE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),

		// MongoDB settings
		MongoURI:        getenv("MULTISITE_MONGO_URI", ""),
		MongoDatabase:   getenv("MULTISITE_MONGO_DATABASE", "multisite"),
		MongoCollection: getenv("MULTISITE_MONGO_COLLECTION", "sites"),
		MongoPoolSize:   getenvInt("MONGO_POOL_SIZE", 0),
		MongoSelTimeout: mustDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),

		// Connection retry
		ConnectTimeout: mustDuration("CONNECT_TIMEOUT", 30*time.Second),
		RetryInterval:  mustDuration("CONNECT_RETRY_INTERVAL", 2*time.Second),
		MaxWait:        mustDuration("CONNECT_MAX_WAIT", 10*time.Second),
		PingTimeout:    mustDuration("CONNECT_PING_TIMEOUT", 5*time.Second),
		WarnThreshold:  getenvInt("CONNECT_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("MULTISITE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MULTISITE_TRUST_PROXY", true),

		// Admin write rate limit
		AdminRateBurst:     getenvInt("MULTISITE_ADMIN_RATE_BURST", 20),
		AdminRatePerMinute: getenvInt("MULTISITE_ADMIN_RATE_PER_MIN", 60),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Store == StoreRedis || c.Channel == ChannelRedis
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	if cp.MongoURI != "" {
		cp.MongoURI = "***REDACTED***"
	}
	return cp
}

// validate panics on combinations that cannot start and fills the
// backend settings they require.
// A multisite deployment without a global hostname is reported by the job
// runner at bootstrap instead, as a configuration error.
func (c *Config) validate() {
	if c.UsesRedis() {
		c.RedisAddr = requireEnv("MULTISITE_REDIS_ADDR")
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			panic("❌ FATAL: MULTISITE_REDIS_PASSWORD is required when MULTISITE_REDIS_PASSWORD_REQUIRED=true")
		}
	}
	if c.Store == StoreMongo {
		c.MongoURI = requireEnv("MULTISITE_MONGO_URI")
	}
	if c.Channel == ChannelLocal && c.Store != StoreMemory {
		log.Printf("[WARN] MULTISITE_CHANNEL=local only reaches this process; peers sharing the %s store will drift until the next sync\n", c.Store)
	}
}

// loadDotEnv reads an optional .env file. Variables already set win.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("❌ FATAL: cannot read env file %s: %v", path, err))
	}
}

func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return host + "-" + uuid.NewString()[:8]
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustOneOf returns the lower-cased value of key, def when unset, and panics
// on anything outside allowed.
func mustOneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(getenv(key, def)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	panic(fmt.Sprintf("❌ FATAL: Invalid value for %s: %q (allowed: %s)", key, v, strings.Join(allowed, ", ")))
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
