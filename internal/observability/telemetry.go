package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/topdown-sim/internal/logging"
)

// TracerName имя трассировщика симуляции
const TracerName = "github.com/annel0/topdown-sim/simulation"

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	// OTLP HTTP экспортер (по умолчанию localhost:4318)
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → 4318, service=%s)", serviceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

// Tracer возвращает трассировщик симуляции из глобального провайдера
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartTickSpan открывает спан одного тика
func StartTickSpan(ctx context.Context, tracer trace.Tracer, tick uint64, entities int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "simulation.tick", trace.WithAttributes(
		attribute.Int64("sim.tick", int64(tick)),
		attribute.Int("sim.entities", entities),
	))
}

// EndTickSpan дописывает итоги тика и закрывает спан
func EndTickSpan(span trace.Span, collisions, removed, failures int) {
	span.SetAttributes(
		attribute.Int("sim.collisions", collisions),
		attribute.Int("sim.removed", removed),
		attribute.Int("sim.failures", failures),
	)
	span.End()
}
