package logging

import (
	"fmt"
	"sort"
	"sync"
)

// LoggerManager управляет логгерами отдельных компонентов.
// Все логгеры компонентов являются дочерними для глобального логгера.
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) *Logger {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := Default().Named(component)
	lm.loggers[component] = logger
	return logger
}

// ListComponents возвращает отсортированный список зарегистрированных компонентов
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel устанавливает уровень логирования для компонента.
// Уровень разделяется с глобальным логгером, от которого порождён компонент.
func (lm *LoggerManager) SetLogLevel(component string, level LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("logger for component %s not found", component)
	}

	logger.SetLevel(level)
	return nil
}

// reset сбрасывает кэш после замены глобального логгера
func (lm *LoggerManager) reset() {
	lm.mu.Lock()
	lm.loggers = make(map[string]*Logger)
	lm.mu.Unlock()
}

// GetComponentLogger удобная функция для получения логгера компонента
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().GetLogger(component)
}

func GetPhysicsLogger() *Logger {
	return GetComponentLogger("physics")
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}

func GetEntityLogger() *Logger {
	return GetComponentLogger("entity")
}

func GetEventBusLogger() *Logger {
	return GetComponentLogger("eventbus")
}
