package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New 创建 Logger
//
// config 为 nil 时使用 NewProdDefaultConfig()。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewProdDefaultConfig()
	}
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := applyOptions(opts...)

	w := o.writer
	if w == nil {
		var err error
		if w, err = openOutput(config.Output); err != nil {
			return nil, err
		}
	}

	level, _ := ParseLevel(config.Level)
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())

	return &loggerImpl{
		handler: newHandler(w, config, lv),
		level:   lv,
		options: o,
	}, nil
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log output %s: %w", output, err)
		}
		return f, nil
	}
}

func newHandler(w io.Writer, config *Config, lv *slog.LevelVar) slog.Handler {
	ho := &slog.HandlerOptions{
		AddSource: config.AddSource,
		Level:     lv,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().Format(TimeFormat))
			case slog.SourceKey:
				if src, ok := a.Value.Any().(*slog.Source); ok && config.SourceRoot != "" {
					src.File = strings.TrimPrefix(src.File, config.SourceRoot)
				}
			}
			return a
		},
	}
	if strings.ToLower(config.Format) == "json" {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}
