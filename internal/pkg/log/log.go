// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/wire"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// SetOutput routes the default logger to a rotating file.
func SetOutput(path string) {
	logrus.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})
}

// ClientMessageToFields flattens a ClientMessage for structured logging.
func ClientMessageToFields(msg wire.ClientMessage) logrus.Fields {
	switch m := msg.(type) {
	case wire.Telemetry:
		return logrus.Fields{
			"type":   wire.TypeTelemetry,
			"robot":  m.State.ID,
			"x":      m.State.X,
			"y":      m.State.Y,
			"speed":  m.State.Speed,
			"active": m.State.Active,
		}
	case wire.Disconnect:
		return logrus.Fields{
			"type":  wire.TypeDisconnect,
			"robot": m.ID,
		}
	default:
		return logrus.Fields{"type": "unknown"}
	}
}

// ServerMessageToFields flattens a ServerMessage for structured logging.
func ServerMessageToFields(msg wire.ServerMessage) logrus.Fields {
	switch m := msg.(type) {
	case wire.ForceStop:
		return logrus.Fields{"type": wire.TypeForceStop}
	case wire.Resume:
		return logrus.Fields{"type": wire.TypeResume}
	case wire.SetSpeedLimit:
		return logrus.Fields{
			"type":  wire.TypeSetSpeedLimit,
			"limit": m.Limit,
		}
	case wire.Warning:
		return logrus.Fields{
			"type": wire.TypeWarning,
			"text": m.Text,
		}
	default:
		return logrus.Fields{"type": "unknown"}
	}
}
