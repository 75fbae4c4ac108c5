package guild

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Saver is the part of Service the autosaver drives.
type Saver interface {
	Save(ctx context.Context) error
}

// AutoSaver saves the roster on a fixed interval and once more on Stop.
// It satisfies server.Service.
type AutoSaver struct {
	saver    Saver
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewAutoSaver creates an AutoSaver.
//
// Precondition: saver and logger non-nil; interval > 0.
func NewAutoSaver(saver Saver, interval time.Duration, logger *zap.Logger) *AutoSaver {
	if saver == nil || logger == nil {
		panic("guild.NewAutoSaver: saver and logger must not be nil")
	}
	if interval <= 0 {
		panic(fmt.Sprintf("guild.NewAutoSaver: interval must be positive, got %s", interval))
	}
	return &AutoSaver{
		saver:    saver,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks, saving every interval until Stop is called.
func (a *AutoSaver) Start() error {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("autosave running", zap.Duration("interval", a.interval))
	for {
		select {
		case <-ticker.C:
			a.save("interval")
		case <-a.stop:
			a.save("shutdown")
			return nil
		}
	}
}

// Stop requests a final save and waits for Start to return. Safe to call multiple times.
func (a *AutoSaver) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *AutoSaver) save(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.saver.Save(ctx); err != nil {
		a.logger.Error("autosave failed", zap.String("reason", reason), zap.Error(err))
		return
	}
	a.logger.Debug("autosave complete", zap.String("reason", reason))
}
