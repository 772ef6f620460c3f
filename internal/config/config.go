package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureConfig holds the live capture settings of one session.
type CaptureConfig struct {
	DeviceIndex int    `yaml:"device_index"`
	Seconds     int    `yaml:"seconds"`
	Label       int    `yaml:"label"`
	SnapshotLen int32  `yaml:"snapshot_len"`
	Promiscuous bool   `yaml:"promiscuous"`
	BPFFilter   string `yaml:"bpf_filter"`
	ArchivePath string `yaml:"archive_path"` // optional raw pcap of the session
}

// EngineConfig holds the settings of the session manager.
type EngineConfig struct {
	SizeOfPacketChannel int    `yaml:"size_of_packet_channel"`
	ProgressInterval    string `yaml:"progress_interval"`
	MetricsAddr         string `yaml:"metrics_addr"` // empty disables /metrics
}

// ClickHouseConfig holds connection details for ClickHouse.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ExportConfig defines where exported flows go.
type ExportConfig struct {
	CSVPath     string           `yaml:"csv_path"`
	SummaryPath string           `yaml:"summary_path"`
	ReportPath  string           `yaml:"report_path"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

// ProbeConfig holds NATS settings for the probe/engine split.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds settings for the dataset API server.
type APIConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
	DatasetPath    string `yaml:"dataset_path"`
}

// MergeConfig holds settings for merging per-session CSV files.
type MergeConfig struct {
	Pattern string `yaml:"pattern"`
	Output  string `yaml:"output"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Engine  EngineConfig  `yaml:"engine"`
	Export  ExportConfig  `yaml:"export"`
	Probe   ProbeConfig   `yaml:"probe"`
	API     APIConfig     `yaml:"api"`
	Merge   MergeConfig   `yaml:"merge"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			DeviceIndex: 0,
			Seconds:     20,
			Label:       0,
			SnapshotLen: 1600,
			Promiscuous: true,
		},
		Engine: EngineConfig{
			SizeOfPacketChannel: 4096,
			ProgressInterval:    "1s",
		},
		Export: ExportConfig{
			CSVPath: "flows.csv",
			ClickHouse: ClickHouseConfig{
				Host:     "localhost",
				Port:     9000,
				Database: "default",
			},
		},
		Probe: ProbeConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "flowfeatures.packets",
		},
		API: APIConfig{
			ListenAddr:     ":8080",
			GRPCListenAddr: ":8081",
			DatasetPath:    "data/flows_all.csv",
		},
		Merge: MergeConfig{
			Pattern: "data/flows_*.csv",
			Output:  "data/flows_all.csv",
		},
	}
}

// LoadConfig reads the configuration from a YAML file on top of Default().
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads filePath if it exists and falls back to Default() otherwise.
func LoadOrDefault(filePath string) (*Config, error) {
	if filePath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfig(filePath)
}

// CaptureDuration returns the configured session length.
func (c *Config) CaptureDuration() time.Duration {
	return time.Duration(c.Capture.Seconds) * time.Second
}

// ProgressInterval returns how often the session logs its counters. Zero
// disables progress logging.
func (c *Config) ProgressInterval() time.Duration {
	if c.Engine.ProgressInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Engine.ProgressInterval)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Capture.Seconds < 0 {
		return fmt.Errorf("capture seconds must not be negative, got %d", c.Capture.Seconds)
	}
	if c.Capture.DeviceIndex < 0 {
		return fmt.Errorf("device index must not be negative, got %d", c.Capture.DeviceIndex)
	}
	if c.Export.CSVPath == "" {
		return fmt.Errorf("export csv_path must be set")
	}
	if c.Engine.SizeOfPacketChannel < 1 {
		return fmt.Errorf("size_of_packet_channel must be at least 1, got %d", c.Engine.SizeOfPacketChannel)
	}
	if c.Engine.ProgressInterval != "" {
		if _, err := time.ParseDuration(c.Engine.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval: %w", err)
		}
	}
	return nil
}
