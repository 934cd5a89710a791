package accesslog

import "github.com/sirupsen/logrus"

// LoggerRecorder writes each record as a structured log entry. Trapped
// accesses are logged at warning level, the rest at debug level.
type LoggerRecorder struct {
	logger *logrus.Logger
}

// NewLoggerRecorder creates a LoggerRecorder. A nil logger falls back to
// logrus.New().
func NewLoggerRecorder(logger *logrus.Logger) *LoggerRecorder {
	if logger == nil {
		logger = logrus.New()
	}

	return &LoggerRecorder{logger: logger}
}

// Record logs the access.
func (r *LoggerRecorder) Record(rec Record) {
	entry := r.logger.WithFields(logrus.Fields{
		"seq":       rec.Seq,
		"op":        rec.Op.String(),
		"dimension": rec.Dimension,
		"role":      rec.Role.String(),
		"coord":     rec.Coord.String(),
		"address":   rec.Address,
	})

	if rec.Trapped {
		entry.Warn("trap dimension accessed")
		return
	}

	entry.Debug("access")
}
