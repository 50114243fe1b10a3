package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Level        string `split_words:"true"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init configures the global logger. Logs go to stderr so command output on
// stdout stays machine readable.
func Init(opts ...Config) {
	InitWriter(os.Stderr, opts...)
}

func InitWriter(w io.Writer, opts ...Config) {
	conf := safe(opts...)

	if conf.PrettyFormat {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}

	log.Logger = log.Logger.Level(conf.level())
	log.Logger = log.Logger.With().Caller().Stack().Logger()
}

func (c *Config) level() zerolog.Level {
	if c.Debug {
		return zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.Level))); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	return zerolog.InfoLevel
}
