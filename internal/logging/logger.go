package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации ("debug", "info", ...).
// Неизвестные значения трактуются как INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger представляет логгер компонента поверх zap
type Logger struct {
	component string
	sugar     *zap.SugaredLogger
	level     zap.AtomicLevel
}

// Options задают параметры логгера
type Options struct {
	Level  LogLevel
	Format string // "console" или "json"
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = &Logger{component: "default", sugar: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
)

// NewLogger создаёт логгер компонента с указанными опциями
func NewLogger(component string, opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(opts.Level.zapLevel())

	var cfg zap.Config
	if opts.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cfg.EncoderConfig.ConsoleSeparator = "  "
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
	}
	cfg.Level = level

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ошибка создания логгера %s: %w", component, err)
	}

	return &Logger{
		component: component,
		sugar:     base.Named(component).Sugar(),
		level:     level,
	}, nil
}

// FromZap оборачивает готовый zap.Logger (используется в тестах)
func FromZap(component string, l *zap.Logger) *Logger {
	return &Logger{
		component: component,
		sugar:     l.Named(component).Sugar(),
		level:     zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// InitDefaultLogger инициализирует глобальный логгер
func InitDefaultLogger(component string, opts Options) error {
	logger, err := NewLogger(component, opts)
	if err != nil {
		return err
	}
	SetDefaultLogger(logger)
	return nil
}

// SetDefaultLogger заменяет глобальный логгер
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	GetLoggerManager().reset()
}

// CloseDefaultLogger сбрасывает буферы глобального логгера
func CloseDefaultLogger() {
	_ = Default().Sync()
}

// Default возвращает текущий глобальный логгер
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Named возвращает дочерний логгер для подкомпонента
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		component: component,
		sugar:     l.sugar.Named(component),
		level:     l.level,
	}
}

// SetLevel меняет уровень логирования на лету
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

// Sync сбрасывает буферы
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Debug логирует сообщение уровня DEBUG через глобальный логгер
func Debug(format string, args ...interface{}) { Default().Debug(format, args...) }

// Info логирует сообщение уровня INFO через глобальный логгер
func Info(format string, args ...interface{}) { Default().Info(format, args...) }

// Warn логирует сообщение уровня WARN через глобальный логгер
func Warn(format string, args ...interface{}) { Default().Warn(format, args...) }

// Error логирует сообщение уровня ERROR через глобальный логгер
func Error(format string, args ...interface{}) { Default().Error(format, args...) }

// DebugEnabled сообщает, пишет ли логгер сообщения уровня DEBUG
func (l *Logger) DebugEnabled() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

// LogEntityMovement логирует движение сущности; без DEBUG ничего не форматирует
func (l *Logger) LogEntityMovement(entityID uint64, fromX, fromY, toX, toY float64) {
	if !l.DebugEnabled() {
		return
	}
	l.sugar.Debugf("Entity %d movement: (%.2f,%.2f) -> (%.2f,%.2f)", entityID, fromX, fromY, toX, toY)
}
