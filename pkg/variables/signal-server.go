package variables

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const ENV_PREFIX = "SIGNAL"

type Config struct {
	HttpPort string `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	AwaitTimeout          time.Duration `envconfig:"AWAIT_TIMEOUT" default:"30s"`
	TokenTTL              time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	SecretHashCost        int           `envconfig:"SECRET_HASH_COST" default:"10"`
	ConnectionBufferSize  int           `envconfig:"CONNECTION_BUFFER_SIZE" default:"256"`
	MaxProtocolViolations int           `envconfig:"MAX_PROTOCOL_VIOLATIONS" default:"10"`
	PingPeriod            time.Duration `envconfig:"PING_PERIOD" default:"27s"`
	PongWait              time.Duration `envconfig:"PONG_WAIT" default:"30s"`
	WriteWait             time.Duration `envconfig:"WRITE_WAIT" default:"10s"`
	MaxFrameSize          int64         `envconfig:"MAX_FRAME_SIZE" default:"1048576"`

	DeleteEmptyRooms        bool          `envconfig:"DELETE_EMPTY_ROOMS" default:"true"`
	UnjoinedRoomTTL         time.Duration `envconfig:"UNJOINED_ROOM_TTL" default:"5m"`
	RoomMaxUsersLimit       int           `envconfig:"ROOM_MAX_USERS_LIMIT" default:"64"`
	FanoutParallelThreshold uint64        `envconfig:"FANOUT_PARALLEL_THRESHOLD" default:"512"`

	StoragePath   string   `envconfig:"STORAGE_PATH"`
	PluginCatalog string   `envconfig:"PLUGIN_CATALOG"`
	ICEServers    []string `envconfig:"ICE_SERVERS" default:"stun:stun.l.google.com:19302"`
	ICEUsername   string   `envconfig:"ICE_USERNAME"`
	ICECredential string   `envconfig:"ICE_CREDENTIAL"`
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	var errs []error
	if c.AwaitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("AWAIT_TIMEOUT must be positive, got %s", c.AwaitTimeout))
	}
	if c.SecretHashCost < 4 || c.SecretHashCost > 31 {
		errs = append(errs, fmt.Errorf("SECRET_HASH_COST must be within 4..31, got %d", c.SecretHashCost))
	}
	if c.ConnectionBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize))
	}
	if c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("PING_PERIOD (%s) must be less than PONG_WAIT (%s)", c.PingPeriod, c.PongWait))
	}
	if c.RoomMaxUsersLimit <= 0 {
		errs = append(errs, fmt.Errorf("ROOM_MAX_USERS_LIMIT must be positive, got %d", c.RoomMaxUsersLimit))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}

// Load reads an optional .env file and then the SIGNAL_* environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(ENV_PREFIX, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
