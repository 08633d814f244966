package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/a-tho/sunexporter/internal/solarman"
)

type Config struct {
	// Exporter
	ExporterPort int    `env:"EXPORTER_PORT"`
	LogLevel     string `env:"LOG_LEVEL"`
	PollInterval int    `env:"POLL_INTERVAL"`

	// Inverter logger
	InverterAddr   string `env:"INVERTER_ADDRESS"`
	InverterPort   int    `env:"INVERTER_PORT"`
	InverterSerial int64  `env:"INVERTER_SERIAL"`
	SlaveID        int    `env:"SLAVE_ID"`
	ReadTimeout    int    `env:"READ_TIMEOUT"`

	// Sample mirror
	DatabaseDSN     string `env:"DATABASE_DSN"`
	FileStoragePath string `env:"FILE_STORAGE_PATH"`
}

// ParseConfig reads flags from args and lets environment variables override
// them.
func (c *Config) ParseConfig(args []string) error {
	fs := flag.NewFlagSet("exporter", flag.ContinueOnError)
	fs.IntVar(&c.ExporterPort, "p", 9877, "port to expose metrics on")
	fs.StringVar(&c.LogLevel, "log", "info", "log level")
	fs.IntVar(&c.PollInterval, "i", 20, "interval in seconds between reads")
	fs.StringVar(&c.InverterAddr, "a", "", "address of the inverter data logger")
	fs.IntVar(&c.InverterPort, "port", solarman.DefaultPort, "port of the inverter data logger")
	fs.Int64Var(&c.InverterSerial, "s", 0, "serial number of the inverter data logger")
	fs.IntVar(&c.SlaveID, "slave", solarman.DefaultUnitID, "modbus slave id of the inverter")
	fs.IntVar(&c.ReadTimeout, "t", int(solarman.DefaultTimeout/time.Second), "register read timeout in seconds")
	fs.StringVar(&c.DatabaseDSN, "d", "", "database dsn to mirror samples to")
	fs.StringVar(&c.FileStoragePath, "f", "", "file to mirror samples to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := env.Parse(c); err != nil {
		return err
	}

	return c.validate()
}

func (c Config) validate() error {
	if c.InverterAddr == "" {
		return errors.New("inverter address is required")
	}
	if c.InverterSerial <= 0 || c.InverterSerial > 1<<32-1 {
		return errors.New("invalid inverter serial")
	}
	if c.SlaveID < 0 || c.SlaveID > 247 {
		return errors.New("invalid slave id")
	}
	if c.PollInterval <= 0 || c.ReadTimeout <= 0 {
		return errors.New("intervals must be positive")
	}
	if c.ExporterPort <= 0 || c.ExporterPort > 65535 || c.InverterPort <= 0 || c.InverterPort > 65535 {
		return errors.New("invalid port")
	}
	return nil
}

// Solarman returns the settings of the logger client.
func (c Config) Solarman() solarman.Config {
	return solarman.Config{
		Host:          c.InverterAddr,
		Port:          c.InverterPort,
		Serial:        uint32(c.InverterSerial),
		UnitID:        uint8(c.SlaveID),
		Timeout:       time.Duration(c.ReadTimeout) * time.Second,
		AutoReconnect: true,
	}
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c Config) InitLogger() {
	c.initLogger(os.Stdout)
}

func (c Config) initLogger(out io.Writer) {
	level := zerolog.InfoLevel
	if newLevel, err := zerolog.ParseLevel(c.LogLevel); err == nil {
		level = newLevel
	}
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.StampMicro}
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Stack().Logger()
}

func (c Config) Log() {
	log.Info().Int("ExporterPort", c.ExporterPort).Msg("")
	log.Info().Str("LogLevel", c.LogLevel).Msg("")
	log.Info().Int("PollInterval", c.PollInterval).Msg("")
	log.Info().Str("InverterAddr", c.InverterAddr).Msg("")
	log.Info().Int("InverterPort", c.InverterPort).Msg("")
	log.Info().Int64("InverterSerial", c.InverterSerial).Msg("")
	log.Info().Int("SlaveID", c.SlaveID).Msg("")
	log.Info().Int("ReadTimeout", c.ReadTimeout).Msg("")
	log.Info().Bool("DatabaseDSN", c.DatabaseDSN != "").Msg("")
	log.Info().Str("FileStoragePath", c.FileStoragePath).Msg("")
}
