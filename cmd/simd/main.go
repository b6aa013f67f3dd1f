package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/annel0/topdown-sim/internal/config"
	"github.com/annel0/topdown-sim/internal/entity"
	"github.com/annel0/topdown-sim/internal/eventbus"
	"github.com/annel0/topdown-sim/internal/logging"
	"github.com/annel0/topdown-sim/internal/observability"
	"github.com/annel0/topdown-sim/internal/physics"
	"github.com/annel0/topdown-sim/internal/terrain"
	"github.com/annel0/topdown-sim/internal/vec"
	"github.com/annel0/topdown-sim/internal/world"
)

// statsEvery интервал строки статистики в логе
const statsEvery = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "путь к конфигурации (YAML или TOML)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("simd", logging.Options{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск симуляции: %d тиков/с, карта %dx%d, seed=%d",
		cfg.Simulation.TickRate, cfg.Simulation.MapWidth, cfg.Simulation.MapHeight, cfg.Simulation.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("❌ Симуляция завершилась с ошибкой: %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Симуляция остановлена")
}

func run(ctx context.Context, cfg *config.Config) error {
	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsSrv := startMetricsServer(cfg.Metrics.Addr, reg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	// === ТРАССИРОВКА ===
	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("⚠️ Телеметрия отключена: %v", err)
		} else {
			defer shutdown(context.Background())
			tracer = observability.Tracer()
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		return err
	}
	exporter := eventbus.NewMetricsExporter(bus, reg, 5*time.Second)
	go exporter.Run(ctx)

	// === МИР ===
	tiles := terrain.NewGenerator(cfg.Simulation.Seed).Generate(cfg.Simulation.MapWidth, cfg.Simulation.MapHeight, cfg.Simulation.TileSize)
	logging.Info("🗺️ Тайлы карты: %v", tiles.Count())

	sim := world.NewSimulation(cfg.Physics.PhysicsWorld(),
		world.WithSeed(cfg.Simulation.Seed),
		world.WithTerrain(tiles),
		world.WithInventory(world.NewMemoryInventory(20)),
		world.WithEventSink(world.NewBusSink(bus)),
		world.WithPhysicsMetrics(physics.NewMetrics(reg)),
	)

	players, err := sim.Populate(world.Population{
		Players: cfg.Simulation.Players,
		Enemies: cfg.Simulation.Enemies,
		NPCs:    cfg.Simulation.NPCs,
		Items:   cfg.Simulation.Items,
	})
	if err != nil {
		return err
	}

	bots := newBots(sim, players)
	monitor := observability.NewProcessMonitor(reg)
	lastStats := time.Now()

	var span trace.Span
	before := func(ctx context.Context, tick uint64) {
		_, span = observability.StartTickSpan(ctx, tracer, tick, sim.EntityCount())
		bots.drive(tick)
	}
	after := func(ctx context.Context, report world.TickReport) {
		observability.EndTickSpan(span, report.Physics.Collisions, report.Removed, len(report.Failures))

		if time.Since(lastStats) >= statsEvery {
			lastStats = time.Now()
			ps := monitor.Sample()
			bs := bus.Metrics()
			logging.Info("📊 Тик %d | сущностей %d | CPU %.1f%% | память %.1f MB | события %d/%d (потеряно %d) | аптайм %s",
				report.Tick, sim.EntityCount(), ps.CPUPercent, ps.MemoryMB,
				bs.Consumed, bs.Published, bs.Dropped, observability.FormatUptime(ps.Uptime))
		}
	}

	return sim.Run(ctx, cfg.Simulation.TickInterval(), before, after)
}

// newEventBus создаёт JetStream-шину, если задан URL, иначе шину в памяти
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("📨 Шина событий: в памяти (буфер %d)", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		return nil, err
	}
	logging.Info("📨 Шина событий: JetStream %s, стрим %s", cfg.URL, cfg.Stream)
	return bus, nil
}

func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logging.Info("📈 Метрики Prometheus: http://localhost%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик: %v", err)
		}
	}()
	return srv
}

// bots простая замена ввода игроков: бродят и стреляют в ближайшего врага
type bots struct {
	sim     *world.Simulation
	players []uint64
}

func newBots(sim *world.Simulation, players []uint64) *bots {
	return &bots{sim: sim, players: players}
}

func (b *bots) drive(tick uint64) {
	rng := b.sim.Rand()
	for _, id := range b.players {
		player, ok := b.sim.FindEntity(id)
		if !ok || !player.Alive() {
			continue
		}

		if tick%60 == 0 {
			dir := vec.FromAngle(rng.Float64() * 2 * math.Pi)
			_ = b.sim.MovePlayer(id, dir)
		}

		if tick%30 != 0 {
			continue
		}
		for _, target := range b.sim.EntitiesInRange(player.Center(), 200) {
			if target.Kind != entity.KindEnemy || !target.Alive() {
				continue
			}
			if !b.sim.LineOfSight(player.Center(), target.Center()) {
				continue
			}
			if _, err := b.sim.Fire(id, target.Center().Sub(player.Center()), entity.DefaultProjectileConfig()); err != nil {
				logging.Debug("Выстрел %d: %v", id, err)
			}
			break
		}
	}
}
