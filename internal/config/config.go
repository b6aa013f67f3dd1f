package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/annel0/topdown-sim/internal/physics"
)

// Config корневая структура конфигурации симуляции.
// Поддерживаются YAML (.yaml/.yml) и TOML (.toml).
type Config struct {
	Physics    PhysicsConfig    `yaml:"physics" toml:"physics"`
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	EventBus   EventBusConfig   `yaml:"eventbus" toml:"eventbus"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" toml:"telemetry"`
}

type PhysicsConfig struct {
	CellSize         float64 `yaml:"cell_size" toml:"cell_size"`
	Gravity          float64 `yaml:"gravity" toml:"gravity"`
	ReferenceFrameMS int     `yaml:"reference_frame_ms" toml:"reference_frame_ms"`
	VelocityEpsilon  float64 `yaml:"velocity_epsilon" toml:"velocity_epsilon"`
	RayStep          float64 `yaml:"ray_step" toml:"ray_step"`
}

type SimulationConfig struct {
	TickRate  int     `yaml:"tick_rate" toml:"tick_rate"` // тиков в секунду
	Seed      int64   `yaml:"seed" toml:"seed"`
	MapWidth  int     `yaml:"map_width" toml:"map_width"`
	MapHeight int     `yaml:"map_height" toml:"map_height"`
	TileSize  float64 `yaml:"tile_size" toml:"tile_size"`
	Players   int     `yaml:"players" toml:"players"`
	Enemies   int     `yaml:"enemies" toml:"enemies"`
	NPCs      int     `yaml:"npcs" toml:"npcs"`
	Items     int     `yaml:"items" toml:"items"`
}

type EventBusConfig struct {
	URL       string `yaml:"url" toml:"url"` // пусто: шина в памяти
	Stream    string `yaml:"stream" toml:"stream"`
	Retention int    `yaml:"retention_hours" toml:"retention_hours"`
	Buffer    int    `yaml:"buffer" toml:"buffer"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // console | json
}

type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{
			CellSize:         physics.DefaultCellSize,
			ReferenceFrameMS: int(physics.DefaultReferenceFrame / time.Millisecond),
			VelocityEpsilon:  physics.DefaultVelocityEpsilon,
			RayStep:          physics.DefaultRayStep,
		},
		Simulation: SimulationConfig{
			TickRate:  60,
			Seed:      1,
			MapWidth:  64,
			MapHeight: 64,
			TileSize:  32,
			Players:   1,
			Enemies:   8,
			NPCs:      3,
			Items:     10,
		},
		EventBus: EventBusConfig{
			Stream:    "SIM_EVENTS",
			Retention: 24,
			Buffer:    1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Addr: ":2112",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "topdown-sim",
		},
	}
}

// Load читает файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся SIM_CONFIG; если и он пуст, используются дефолты.
// Затем применяются переопределения из окружения.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SIM_CONFIG")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("parse toml %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// applyEnv переопределения из окружения: SIM_METRICS_ADDR, SIM_LOG_LEVEL, SIM_SEED
func (c *Config) applyEnv() {
	if v := os.Getenv("SIM_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("SIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Simulation.Seed = seed
		}
	}
}

// Validate проверяет значения, которые нельзя молча исправить
func (c *Config) Validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive, got %d", c.Simulation.TickRate)
	}
	if c.Simulation.MapWidth <= 0 || c.Simulation.MapHeight <= 0 {
		return fmt.Errorf("map size must be positive, got %dx%d", c.Simulation.MapWidth, c.Simulation.MapHeight)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// TickInterval длительность одного тика
func (s SimulationConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// PhysicsWorld переводит секцию physics в конфигурацию физического мира.
// Нулевые значения заменяет NewWorld.
func (p PhysicsConfig) PhysicsWorld() physics.Config {
	return physics.Config{
		CellSize:        p.CellSize,
		Gravity:         p.Gravity,
		ReferenceFrame:  time.Duration(p.ReferenceFrameMS) * time.Millisecond,
		VelocityEpsilon: p.VelocityEpsilon,
		RayStep:         p.RayStep,
	}
}

// RetentionDuration срок хранения событий в JetStream
func (e EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}
