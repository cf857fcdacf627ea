package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Debug     bool          `yaml:"debug" env:"DEBUG"`
	Limiter   Limiter       `yaml:"limiter"`
	AppID     int32         `yaml:"app_id" env:"APP_ID"`
	AppSecret string        `yaml:"app_secret" env:"APP_SECRET" env-required:"true"`
	Server    Server        `yaml:"server"`
	DB        DB            `yaml:"db"`
	Catalog   Catalog       `yaml:"catalog"`
	Cache     Cache         `yaml:"cache"`
	Favorites Favorites     `yaml:"favorites"`
	Sessions  Sessions      `yaml:"sessions"`
	SMTP      SMTP          `yaml:"smtp"`
	Log       Log           `yaml:"log"`
	Clients   ClientsConfig `yaml:"clients"`
}

type Limiter struct {
	Enabled bool    `yaml:"enabled"`
	Rps     float64 `yaml:"rps" env-default:"20"`
	Burst   int     `yaml:"burst" env-default:"5"`
}

type Client struct {
	Addr         string        `yaml:"addr" env:"SSO_ADDR" env-required:"true"`
	RetryTimeout time.Duration `yaml:"retry_timeout" env-default:"1s"`
	RetriesCount int           `yaml:"retries_count" env-default:"1"`
}

type ClientsConfig struct {
	SSO Client `yaml:"sso"`
}

type Server struct {
	Port string `yaml:"port" env:"PORT" env-default:"8000"`
	Host string `yaml:"host" env-default:"localhost"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"20s"`
}

type DB struct {
	Dsn             string        `yaml:"dsn" env:"DB_DSN" env-required:"true"`
	MaxConns        int           `yaml:"max_conns" env-default:"25"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"10m"`
	Migrate         bool          `yaml:"migrate" env-default:"true"`
}

type Catalog struct {
	BaseURL string        `yaml:"base_url" env-default:"https://api.themoviedb.org/3"`
	ApiKey  string        `yaml:"api_key" env:"TMDB_API_KEY" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// Cache selects redis when RedisAddr is set and an in-memory LRU otherwise.
type Cache struct {
	Size          int           `yaml:"size" env-default:"1000"`
	TTL           time.Duration `yaml:"ttl" env-default:"5m"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env-default:"0"`
}

type Favorites struct {
	MaxDetailWorkers int `yaml:"max_detail_workers" env-default:"8"`
}

type Sessions struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
}

// SMTP is optional; without a host no welcome mail is sent.
type SMTP struct {
	Host         string        `yaml:"host" env:"SMTP_HOST"`
	Port         int           `yaml:"port" env-default:"25"`
	Username     string        `yaml:"username" env:"SMTP_USERNAME"`
	Password     string        `yaml:"password" env:"SMTP_PASSWORD"`
	Sender       string        `yaml:"sender" env-default:"MovieDB <no-reply@moviedb.local>"`
	Timeout      time.Duration `yaml:"timeout" env-default:"5s"`
	RetriesCount int           `yaml:"retries_count" env-default:"3"`
}

type Log struct {
	File string `yaml:"file" env:"LOG_FILE"`
}

func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}

func MustLoad(configPath string) *Config {
	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic(fmt.Errorf("config file %s not found", configPath))
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic(err)
	}

	return &cfg
}
