package world

import (
	"context"
	"time"
)

// InputHook вызывается перед тиком: здесь внешний ввод задаёт скорости игроков
type InputHook func(ctx context.Context, tick uint64)

// TickHook вызывается после каждого тика из горутины цикла
type TickHook func(ctx context.Context, report TickReport)

// Run выполняет тики с фиксированным шагом interval до отмены контекста.
// Каждый тик получает ровно interval, независимо от фактической задержки таймера.
// before вызывается перед тиком (ввод), after после него; оба могут быть nil.
func (s *Simulation) Run(ctx context.Context, interval time.Duration, before InputHook, after TickHook) error {
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("▶️ Цикл симуляции запущен: шаг %v", interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("⏹️ Цикл симуляции остановлен на тике %d", s.tick)
			return ctx.Err()
		case <-ticker.C:
			// Отмена могла прийти одновременно с таймером
			if ctx.Err() != nil {
				continue
			}
			if before != nil {
				before(ctx, s.tick+1)
			}
			report := s.Update(interval)
			for _, err := range report.Failures {
				s.log.Warn("⚠️ Тик %d: %v", report.Tick, err)
			}
			if after != nil {
				after(ctx, report)
			}
		}
	}
}
