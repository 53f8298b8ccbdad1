package logger

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// hlog levels onto zap; zap has no trace or notice, and fatal does not exit here
var hlogLevels = map[hlog.Level]zapcore.Level{
	hlog.LevelTrace:  zapcore.DebugLevel,
	hlog.LevelDebug:  zapcore.DebugLevel,
	hlog.LevelInfo:   zapcore.InfoLevel,
	hlog.LevelNotice: zapcore.InfoLevel,
	hlog.LevelWarn:   zapcore.WarnLevel,
	hlog.LevelError:  zapcore.ErrorLevel,
	hlog.LevelFatal:  zapcore.ErrorLevel,
}

// HertzZapAdapter routes Hertz's hlog output into zap. The Ctx* variants use
// the request-scoped logger stored by WithContext when there is one.
type HertzZapAdapter struct {
	logger *zap.Logger
	min    atomic.Int32 // hlog.Level below which entries are dropped
}

var _ hlog.FullLogger = (*HertzZapAdapter)(nil)

// NewHertzZapAdapter creates a new Hertz logger adapter backed by zap
func NewHertzZapAdapter(logger *zap.Logger) *HertzZapAdapter {
	return &HertzZapAdapter{logger: logger}
}

func (h *HertzZapAdapter) log(ctx context.Context, level hlog.Level, msg string) {
	if level < hlog.Level(h.min.Load()) {
		return
	}
	l := FromContextOr(ctx, h.logger)
	// skip log and the exported hlog method
	if ce := l.WithOptions(zap.AddCallerSkip(2)).Check(hlogLevels[level], msg); ce != nil {
		ce.Write()
	}
}

func sprint(v []interface{}) string {
	if len(v) == 1 {
		if s, ok := v[0].(string); ok {
			return s
		}
	}
	return fmt.Sprint(v...)
}

func (h *HertzZapAdapter) Trace(v ...interface{})  { h.log(context.Background(), hlog.LevelTrace, sprint(v)) }
func (h *HertzZapAdapter) Debug(v ...interface{})  { h.log(context.Background(), hlog.LevelDebug, sprint(v)) }
func (h *HertzZapAdapter) Info(v ...interface{})   { h.log(context.Background(), hlog.LevelInfo, sprint(v)) }
func (h *HertzZapAdapter) Notice(v ...interface{}) { h.log(context.Background(), hlog.LevelNotice, sprint(v)) }
func (h *HertzZapAdapter) Warn(v ...interface{})   { h.log(context.Background(), hlog.LevelWarn, sprint(v)) }
func (h *HertzZapAdapter) Error(v ...interface{})  { h.log(context.Background(), hlog.LevelError, sprint(v)) }
func (h *HertzZapAdapter) Fatal(v ...interface{})  { h.log(context.Background(), hlog.LevelFatal, sprint(v)) }

func (h *HertzZapAdapter) Tracef(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelTrace, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Debugf(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelDebug, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Infof(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelInfo, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Noticef(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelNotice, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Warnf(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelWarn, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Errorf(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelError, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) Fatalf(format string, v ...interface{}) {
	h.log(context.Background(), hlog.LevelFatal, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxTracef(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelTrace, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxDebugf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelDebug, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxInfof(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelInfo, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxNoticef(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelNotice, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxWarnf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelWarn, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxErrorf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelError, fmt.Sprintf(format, v...))
}

func (h *HertzZapAdapter) CtxFatalf(ctx context.Context, format string, v ...interface{}) {
	h.log(ctx, hlog.LevelFatal, fmt.Sprintf(format, v...))
}

// SetLevel drops hlog entries below level; the zap core still applies its own
func (h *HertzZapAdapter) SetLevel(level hlog.Level) {
	h.min.Store(int32(level))
}

// SetOutput is a no-op, the zap core owns the sink
func (h *HertzZapAdapter) SetOutput(io.Writer) {}
