package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	PlantID   string          `yaml:"plant_id"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Feed      FeedConfig      `yaml:"feed"`
	Messaging MessagingConfig `yaml:"messaging"`
	Plant     PlantConfig     `yaml:"plant"`
	Sched     SchedConfig     `yaml:"sched"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Web       WebConfig       `yaml:"web"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FeedConfig struct {
	Broker             string `yaml:"broker"`
	ClientID           string `yaml:"client_id"`
	TopicPrefix        string `yaml:"topic_prefix"`
	ReconnectIntervalS int    `yaml:"reconnect_interval_s"`
	QueueSize          int    `yaml:"queue_size"`
	PollTimeoutMS      int    `yaml:"poll_timeout_ms"`
}

func (c *FeedConfig) ReconnectInterval() time.Duration {
	return time.Duration(c.ReconnectIntervalS) * time.Second
}

func (c *FeedConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

type MessagingConfig struct {
	Backend       string   `yaml:"backend"` // "mqtt" or "kafka"
	Broker        string   `yaml:"broker"`
	ClientID      string   `yaml:"client_id"`
	TopicPrefix   string   `yaml:"topic_prefix"`
	KafkaBrokers  []string `yaml:"kafka_brokers"`
	WriteTimeoutS int      `yaml:"write_timeout_s"`
}

func (c *MessagingConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutS) * time.Second
}

type WarehouseSeed struct {
	ID       string         `yaml:"id"`
	Location string         `yaml:"location"`
	Priority int            `yaml:"priority"`
	Stock    map[string]int `yaml:"stock"`
}

type ConveyorSeed struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Warehouse   string         `yaml:"warehouse"`
	ProductType string         `yaml:"product_type"`
	Rate        float64        `yaml:"rate"` // units per hour
	BufferCap   int            `yaml:"buffer_cap"`
	Buffer      map[string]int `yaml:"buffer"`
}

type PlantConfig struct {
	Warehouses       []WarehouseSeed `yaml:"warehouses"`
	Conveyors        []ConveyorSeed  `yaml:"conveyors"`
	RefillAmount     int             `yaml:"refill_amount"`
	TimeScale        float64         `yaml:"time_scale"` // divides simulated production time
	MaintenanceOdds  float64         `yaml:"maintenance_odds"`
	MaintenanceHoldS int             `yaml:"maintenance_hold_s"`
}

func (c *PlantConfig) MaintenanceHold() time.Duration {
	return time.Duration(c.MaintenanceHoldS) * time.Second
}

type SchedConfig struct {
	TickIntervalS int `yaml:"tick_interval_s"`
}

func (c *SchedConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalS) * time.Second
}

type MonitorConfig struct {
	HealthIntervalS    int     `yaml:"health_interval_s"`
	InventoryIntervalS int     `yaml:"inventory_interval_s"`
	QualityIntervalS   int     `yaml:"quality_interval_s"`
	LowStockThreshold  int     `yaml:"low_stock_threshold"`
	AutoRestock        bool    `yaml:"auto_restock"`
	RestockAmount      int     `yaml:"restock_amount"`
	QualityThreshold   float64 `yaml:"quality_threshold"`
}

func (c *MonitorConfig) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalS) * time.Second
}

func (c *MonitorConfig) InventoryInterval() time.Duration {
	return time.Duration(c.InventoryIntervalS) * time.Second
}

func (c *MonitorConfig) QualityInterval() time.Duration {
	return time.Duration(c.QualityIntervalS) * time.Second
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionKey    string `yaml:"session_key"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassHash string `yaml:"admin_password_hash"` // bcrypt hash
	AuthDisabled  bool   `yaml:"auth_disabled"`
}

// Load reads the YAML config at path, applying defaults for anything unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration: the three-line, three-warehouse
// cell the plant simulator ships with.
func Default() *Config {
	return &Config{
		PlantID: "evcell-1",
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "cellcore.db"},
			Postgres: PostgresConfig{
				Host: "localhost", Port: 5432, Database: "cellcore",
				User: "cellcore", SSLMode: "disable",
			},
		},
		Redis: RedisConfig{Address: "localhost:6379"},
		Feed: FeedConfig{
			Broker:             "tcp://localhost:1883",
			ClientID:           "cellcore-feed",
			TopicPrefix:        "evfactory",
			ReconnectIntervalS: 30,
			QueueSize:          4096,
			PollTimeoutMS:      1000,
		},
		Messaging: MessagingConfig{
			Backend:       "mqtt",
			Broker:        "tcp://localhost:1883",
			ClientID:      "cellcore-status",
			TopicPrefix:   "evfactory",
			WriteTimeoutS: 2,
		},
		Plant: PlantConfig{
			Warehouses: []WarehouseSeed{
				{ID: "WH_A", Location: "Building A - Floor 1", Priority: 1,
					Stock: map[string]int{"anode": 30, "cathode": 25, "electrolyte": 35}},
				{ID: "WH_B", Location: "Building B - Floor 2", Priority: 2,
					Stock: map[string]int{"anode": 20, "cathode": 25, "electrolyte": 15}},
				{ID: "WH_C", Location: "Building C - Emergency Store", Priority: 3,
					Stock: map[string]int{"anode": 10, "cathode": 15, "electrolyte": 20}},
			},
			Conveyors: []ConveyorSeed{
				{ID: "C1", Name: "High-Speed Line 1", Warehouse: "WH_A",
					ProductType: "Li-Ion_18650", Rate: 120, BufferCap: 10,
					Buffer: map[string]int{"anode": 5, "cathode": 5, "electrolyte": 5}},
				{ID: "C2", Name: "Precision Line 2", Warehouse: "WH_B",
					ProductType: "Li-Ion_21700", Rate: 100, BufferCap: 10,
					Buffer: map[string]int{"anode": 5, "cathode": 5, "electrolyte": 5}},
				{ID: "C3", Name: "Heavy-Duty Line 3", Warehouse: "WH_A",
					ProductType: "LiFePO4_26650", Rate: 80, BufferCap: 10,
					Buffer: map[string]int{"anode": 5, "cathode": 5, "electrolyte": 5}},
			},
			RefillAmount:     5,
			TimeScale:        60,
			MaintenanceOdds:  0.001,
			MaintenanceHoldS: 10,
		},
		Sched: SchedConfig{TickIntervalS: 5},
		Monitor: MonitorConfig{
			HealthIntervalS:    30,
			InventoryIntervalS: 120,
			QualityIntervalS:   300,
			LowStockThreshold:  10,
			AutoRestock:        true,
			RestockAmount:      30,
			QualityThreshold:   95.0,
		},
		Web: WebConfig{Host: "0.0.0.0", Port: 5001, AdminUser: "admin"},
	}
}

// Validate rejects configurations the core cannot start with.
func (c *Config) Validate() error {
	if len(c.Plant.Warehouses) == 0 {
		return fmt.Errorf("config: no warehouses configured")
	}
	if len(c.Plant.Conveyors) == 0 {
		return fmt.Errorf("config: no conveyors configured")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Messaging.Backend {
	case "mqtt", "kafka":
	default:
		return fmt.Errorf("config: unsupported messaging backend %q", c.Messaging.Backend)
	}
	for _, cv := range c.Plant.Conveyors {
		if cv.BufferCap <= 0 {
			return fmt.Errorf("config: conveyor %s: buffer_cap must be positive", cv.ID)
		}
	}
	return nil
}
