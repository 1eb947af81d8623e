package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"fooddelivery/pkg/config"
)

// New builds the application logger. Output always goes to stdout and,
// when a path is configured, to a rotated log file as well.
func New(conf config.Logging) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(conf.Level)
	if err != nil {
		return nil, fmt.Errorf("unknown logging level %q: %w", conf.Level, err)
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		PadLevelText:    true,
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})

	var out io.Writer = os.Stdout
	if conf.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   conf.Path,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.SetOutput(out)

	return log, nil
}
