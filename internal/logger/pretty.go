// internal/logger/pretty.go
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// FormatMessage turns the quoter's structured entries into short console lines.
func FormatMessage(msg string, fields ...zap.Field) string {
	switch {
	case strings.Contains(msg, "Pools loaded"), strings.Contains(msg, "Pools discovered"):
		count := extractField(fields, "count")
		return fmt.Sprintf("%s📋 %s pools ready%s", ColorBlue, count, ColorReset)

	case strings.Contains(msg, "Pool updated"):
		pool := extractField(fields, "pool")
		return fmt.Sprintf("%s🔄 Pool %s updated%s", ColorCyan, shortenAddress(pool), ColorReset)

	case strings.Contains(msg, "Pool update failed"):
		pool := extractField(fields, "pool")
		return fmt.Sprintf("%s⚠ Pool %s update failed: %s%s", ColorYellow, shortenAddress(pool), extractField(fields, "error"), ColorReset)

	case strings.Contains(msg, "Quote hit liquidity ceiling"):
		return fmt.Sprintf("%s⛔ Not enough liquidity%s", ColorYellow, ColorReset)

	case strings.Contains(msg, "Best quote"):
		venue := extractField(fields, "venue")
		out := extractField(fields, "out_amount")
		return fmt.Sprintf("%s✅ Best quote: %s out on %s%s", ColorGreen+ColorBold, out, venue, ColorReset)

	case strings.Contains(msg, "Retrying RPC call"):
		return fmt.Sprintf("%s↻ Retrying %s%s", ColorPurple, extractField(fields, "method"), ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch field.Type {
		case zapcore.StringType:
			return field.String
		case zapcore.Int64Type, zapcore.Int32Type:
			return fmt.Sprintf("%d", field.Integer)
		case zapcore.Uint64Type, zapcore.Uint32Type:
			return fmt.Sprintf("%d", uint64(field.Integer))
		case zapcore.ErrorType:
			if err, ok := field.Interface.(error); ok {
				return err.Error()
			}
		}
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface)
		}
		return field.String
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore wraps a zapcore.Core, rewriting messages with FormatMessage
// and dropping structured fields.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	entry.Message = FormatMessage(entry.Message, all...)
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
