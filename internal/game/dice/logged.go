package dice

import "go.uber.org/zap"

// LoggedSource wraps a Source and logs every draw at debug level.
type LoggedSource struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedSource creates a LoggedSource drawing from src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, logger *zap.Logger) *LoggedSource {
	if src == nil || logger == nil {
		panic("dice: NewLoggedSource precondition violated: src and logger must be non-nil")
	}
	return &LoggedSource{src: src, logger: logger}
}

// Intn draws from the wrapped source and logs the value.
func (l *LoggedSource) Intn(n int) int {
	v := l.src.Intn(n)
	l.logger.Debug("dice intn", zap.Int("n", n), zap.Int("value", v))
	return v
}

// Float64 draws from the wrapped source and logs the value.
func (l *LoggedSource) Float64() float64 {
	v := l.src.Float64()
	l.logger.Debug("dice float", zap.Float64("value", v))
	return v
}

// Roll evaluates e and logs the expression, faces, modifier and total.
func (l *LoggedSource) Roll(e Expression) Result {
	r := e.Roll(l.src)
	l.logger.Debug("dice roll",
		zap.String("expression", r.Expression),
		zap.Ints("faces", r.Faces),
		zap.Int("modifier", r.Modifier),
		zap.Int("total", r.Total()),
	)
	return r
}
