package internal

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
)

// Config is the chat server configuration, read from the environment.
// An empty REDIS_ADDR runs a single process without relay.
type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,required=true"`
	AdminPort            int           `env:"ADMIN_PORT,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RelayChannel         string        `env:"RELAY_CHANNEL,default=sendify:fanout"`
	StoreURL             string        `env:"STORE_URL,required=true"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT,default=5s"`
	CommandBufferSize    int           `env:"COMMAND_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HealthInterval       time.Duration `env:"HEALTH_INTERVAL,default=5s"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if config.CommandBufferSize <= 0 || config.ConnectionBufferSize <= 0 {
		return Config{}, fmt.Errorf("config error: buffer sizes must be positive")
	}
	return config, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) AdminAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.AdminPort))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
