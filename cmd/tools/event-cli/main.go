package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/eventbus"
)

const defaultNATSURL = "nats://127.0.0.1:4222"

// eventTypes известные типы событий симуляции
var eventTypes = []struct {
	name        string
	description string
}{
	{entity.EnemyDeath{}.EventType(), "тело врага убрано после анимации смерти"},
	{entity.ItemPickup{}.EventType(), "игрок подобрал предмет"},
	{entity.TriggerActivated{}.EventType(), "сработал триггер, рычаг или сундук"},
	{entity.NPCInteract{}.EventType(), "игрок заговорил с NPC"},
	{entity.PlayerDamaged{}.EventType(), "игрок получил урон"},
	{entity.PlayerDied{}.EventType(), "игрок погиб"},
	{entity.Message{}.EventType(), "сообщение игроку"},
}

func main() {
	var (
		natsURL  = flag.String("nats", defaultNATSURL, "NATS server URL")
		stream   = flag.String("stream", eventbus.DefaultStream, "JetStream stream name")
		command  = flag.String("cmd", "tail", "Command: tail, stats, types")
		types    = flag.String("types", "", "Event types filter (comma-separated)")
		limit    = flag.Int("limit", 0, "Stop after N events (0 = unlimited)")
		duration = flag.Duration("for", 10*time.Second, "Collection window for stats")
	)
	flag.Parse()

	if *command == "types" {
		showTypes()
		return
	}

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{Types: parseStringList(*types)}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, *limit); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
	case "stats":
		if err := showStats(ctx, bus, filter, *duration); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats, types")
		os.Exit(1)
	}
}

// tailEvents выводит события по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, limit int) error {
	fmt.Printf("🎬 Tailing events (limit: %d)\n", limit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	count := 0
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && count >= limit {
			return
		}
		count++
		fmt.Println(formatEnvelope(ev))
		if limit > 0 && count >= limit {
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// showStats считает события по типам в течение окна
func showStats(ctx context.Context, bus eventbus.EventBus, filter eventbus.Filter, window time.Duration) error {
	fmt.Printf("📊 Event statistics for %v\n", window)

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	counter := newTypeCounter()
	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		counter.add(ev.EventType)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	total, rows := counter.snapshot()
	fmt.Printf("Total events: %d\n", total)
	fmt.Println("\nBy event type:")
	for _, row := range rows {
		fmt.Printf("  %s: %d events\n", row.eventType, row.count)
	}
	return nil
}

// showTypes выводит известные типы событий
func showTypes() {
	fmt.Println("📋 Available event types")
	for _, t := range eventTypes {
		fmt.Printf("  %-15s %s (subject %s)\n", t.name, t.description, eventbus.Subject(t.name))
	}
}

type typeCount struct {
	eventType string
	count     int
}

// typeCounter потокобезопасный счётчик событий по типам
type typeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newTypeCounter() *typeCounter {
	return &typeCounter{counts: make(map[string]int)}
}

func (c *typeCounter) add(eventType string) {
	c.mu.Lock()
	c.counts[eventType]++
	c.mu.Unlock()
}

// snapshot возвращает сумму и строки по убыванию количества
func (c *typeCounter) snapshot() (int, []typeCount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	rows := make([]typeCount, 0, len(c.counts))
	for t, n := range c.counts {
		total += n
		rows = append(rows, typeCount{eventType: t, count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].eventType < rows[j].eventType
	})
	return total, rows
}

// formatEnvelope выводит событие в читаемом формате
func formatEnvelope(ev *eventbus.Envelope) string {
	line := fmt.Sprintf("[%s] tick=%s %s [%s] %s",
		ev.Timestamp.Format("15:04:05"), ev.CorrelationID, ev.Source, ev.EventType, ev.ID)

	// Добавляем детали в зависимости от типа события
	switch ev.EventType {
	case entity.EnemyDeath{}.EventType():
		var e entity.EnemyDeath
		if ev.Decode(&e) == nil {
			line += fmt.Sprintf("\n  Enemy: %d Killer: %d at (%.0f,%.0f)", e.EnemyID, e.KillerID, e.Position.X, e.Position.Y)
		}
	case entity.ItemPickup{}.EventType():
		var e entity.ItemPickup
		if ev.Decode(&e) == nil {
			line += fmt.Sprintf("\n  Player: %d Item: %s x%d", e.PlayerID, e.Item.ItemID, e.Item.Quantity)
		}
	case entity.PlayerDamaged{}.EventType():
		var e entity.PlayerDamaged
		if ev.Decode(&e) == nil {
			line += fmt.Sprintf("\n  Player: %d -%d hp (left %d) from %d", e.PlayerID, e.Amount, e.Remaining, e.SourceID)
		}
	case entity.NPCInteract{}.EventType():
		var e entity.NPCInteract
		if ev.Decode(&e) == nil {
			line += fmt.Sprintf("\n  %s: %q", e.Speaker, e.Line)
		}
	}
	return line
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
