package config

import "flag"

// Flags binds the command-line overrides shared by the capture binaries.
type Flags struct {
	fs         *flag.FlagSet
	configPath *string
	iface      *int
	seconds    *int
	label      *int
	out        *string
}

// RegisterFlags defines --config, --iface, --seconds, --label and --out on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	return &Flags{
		fs:         fs,
		configPath: fs.String("config", "configs/config.yaml", "Path to the YAML configuration file."),
		iface:      fs.Int("iface", d.Capture.DeviceIndex, "Index of the capture device, as listed at startup."),
		seconds:    fs.Int("seconds", d.Capture.Seconds, "Capture duration in seconds."),
		label:      fs.Int("label", d.Capture.Label, "Class label written to every row of the session."),
		out:        fs.String("out", d.Export.CSVPath, "CSV file the session appends to."),
	}
}

// Load reads the configuration file and applies the flags the user set
// explicitly. A missing file means defaults.
func (f *Flags) Load() (*Config, error) {
	cfg, err := LoadOrDefault(*f.configPath)
	if err != nil {
		return nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "iface":
			cfg.Capture.DeviceIndex = *f.iface
		case "seconds":
			cfg.Capture.Seconds = *f.seconds
		case "label":
			cfg.Capture.Label = *f.label
		case "out":
			cfg.Export.CSVPath = *f.out
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
