package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/progress"
)

// LogSink writes run milestones to a zap logger. Per-posting events go out at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a LogSink. A nil logger discards everything.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("progress")}
}

// Consume implements progress.Sink.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("site", evt.Site),
			zap.String("stage", string(evt.Stage)),
		}
		switch evt.Stage {
		case progress.StagePostingDone:
			fields = append(fields, zap.String("url", evt.URL), zap.String("outcome", string(evt.Outcome)))
			if evt.Note != "" {
				fields = append(fields, zap.String("note", evt.Note))
			}
			s.logger.Debug("posting processed", fields...)
			continue
		case progress.StageURLsCollected:
			fields = append(fields, zap.Int("found", evt.Count))
		case progress.StageRunDone:
			fields = append(fields, zap.Int("saved", evt.Count), zap.Duration("elapsed", evt.Dur))
		case progress.StageRunError:
			fields = append(fields, zap.String("error", evt.Note))
		}
		s.logger.Info("run progress", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
