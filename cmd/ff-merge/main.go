package main

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/dataset"
	"flag"
	"log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	pattern := flag.String("pattern", "", "Glob of per-session CSV files (overrides merge.pattern).")
	output := flag.String("out", "", "Merged CSV file (overrides merge.output).")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *pattern != "" {
		cfg.Merge.Pattern = *pattern
	}
	if *output != "" {
		cfg.Merge.Output = *output
	}

	if _, err := dataset.Merge(cfg.Merge.Pattern, cfg.Merge.Output); err != nil {
		log.Fatalf("Merge failed: %v", err)
	}
}
