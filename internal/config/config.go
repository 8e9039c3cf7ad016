package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "UNDERGROUND"

type Config struct {
	ServerURL      string
	WSPath         string
	Player         string
	DSN            string
	LogLevel       string
	Verbose        bool
	Auto           bool
	Seed           int64
	RequestTimeout time.Duration

	VoteCountdown  time.Duration
	SkillCountdown time.Duration
	ResultPoll     time.Duration
	ResultBudget   time.Duration
	RoomPoll       time.Duration
	LobbyPoll      time.Duration
	VoteNavDelay   time.Duration
	SkillNavDelay  time.Duration
}

func Default() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		WSPath:         "/ws/websocket",
		DSN:            "underground.db",
		LogLevel:       "info",
		RequestTimeout: 8 * time.Second,
		VoteCountdown:  15 * time.Second,
		SkillCountdown: 20 * time.Second,
		ResultPoll:     300 * time.Millisecond,
		ResultBudget:   4 * time.Second,
		RoomPoll:       3 * time.Second,
		LobbyPoll:      time.Second,
		VoteNavDelay:   3 * time.Second,
		SkillNavDelay:  2 * time.Second,
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid --server: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid --server (want http(s)://host[:port]): %q", c.ServerURL)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("invalid --ws-path (must start with /): %q", c.WSPath)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	durations := []struct {
		flag string
		d    time.Duration
	}{
		{"request-timeout", c.RequestTimeout},
		{"vote-countdown", c.VoteCountdown},
		{"skill-countdown", c.SkillCountdown},
		{"result-poll", c.ResultPoll},
		{"result-budget", c.ResultBudget},
		{"room-poll", c.RoomPoll},
		{"lobby-poll", c.LobbyPoll},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("invalid --%s (must be positive): %s", d.flag, d.d)
		}
	}
	if c.VoteNavDelay < 0 || c.SkillNavDelay < 0 {
		return errors.New("navigate delays cannot be negative")
	}
	if c.ResultPoll > c.ResultBudget {
		return fmt.Errorf("--result-poll %s exceeds --result-budget %s", c.ResultPoll, c.ResultBudget)
	}
	return nil
}

// Register adds one flag per field, defaulting to the current values.
func (c *Config) Register(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.ServerURL, "server", "s", c.ServerURL, "backend base URL (env: UNDERGROUND_SERVER)")
	fs.StringVar(&c.WSPath, "ws-path", c.WSPath, "websocket path for STOMP (env: UNDERGROUND_WS_PATH)")
	fs.StringVarP(&c.Player, "player", "p", c.Player, "player name; falls back to the stored session (env: UNDERGROUND_PLAYER)")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "flag store: sqlite file or postgres:// URL (env: UNDERGROUND_DSN)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error (env: UNDERGROUND_LOG_LEVEL)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "human readable debug logging (env: UNDERGROUND_VERBOSE)")
	fs.BoolVar(&c.Auto, "auto", c.Auto, "let a bot make every choice (env: UNDERGROUND_AUTO)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "bot random seed, 0 picks one (env: UNDERGROUND_SEED)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "per request timeout (env: UNDERGROUND_REQUEST_TIMEOUT)")
	fs.DurationVar(&c.VoteCountdown, "vote-countdown", c.VoteCountdown, "vote countdown (env: UNDERGROUND_VOTE_COUNTDOWN)")
	fs.DurationVar(&c.SkillCountdown, "skill-countdown", c.SkillCountdown, "skill countdown (env: UNDERGROUND_SKILL_COUNTDOWN)")
	fs.DurationVar(&c.ResultPoll, "result-poll", c.ResultPoll, "vote result poll interval (env: UNDERGROUND_RESULT_POLL)")
	fs.DurationVar(&c.ResultBudget, "result-budget", c.ResultBudget, "vote result poll budget (env: UNDERGROUND_RESULT_BUDGET)")
	fs.DurationVar(&c.RoomPoll, "room-poll", c.RoomPoll, "waiting room refresh interval (env: UNDERGROUND_ROOM_POLL)")
	fs.DurationVar(&c.LobbyPoll, "lobby-poll", c.LobbyPoll, "lobby refresh interval (env: UNDERGROUND_LOBBY_POLL)")
	fs.DurationVar(&c.VoteNavDelay, "vote-delay", c.VoteNavDelay, "pause on the vote result (env: UNDERGROUND_VOTE_DELAY)")
	fs.DurationVar(&c.SkillNavDelay, "skill-delay", c.SkillNavDelay, "pause after all skills are used (env: UNDERGROUND_SKILL_DELAY)")
}

// Load reads .env files (missing ones are ignored), then backfills every
// flag the user did not set from UNDERGROUND_* variables.
func Load(fset *pflag.FlagSet, envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	fset.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fset.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})
	return errors.Join(errs...)
}

// Logger builds the process logger: console encoder when verbose, JSON
// otherwise.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if c.Verbose {
		zc = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
