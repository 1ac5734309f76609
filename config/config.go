// Package config holds the ipmeta configuration, loaded with Viper from a
// TOML file plus IPMETA_* environment variables.
package config

// Config represents the full ipmeta configuration.
type Config struct {
	RIB   RIBConfig   `mapstructure:"rib"`
	IXP   IXPConfig   `mapstructure:"ixp"`
	Fetch FetchConfig `mapstructure:"fetch"`
}

// RIBConfig locates the routing-table-derived IP to ASN database.
type RIBConfig struct {
	// DB is the RIB database dump consumed at engine construction.
	// Typically the rib.latest.json.gz symlink maintained by `fetch rib`.
	DB string `mapstructure:"db"`
}

// IXPConfig locates the exchange data sources. For both the exchange
// (peering LAN) records and the membership (netixlan) records, exactly one
// of file or stream must be given; a stream is an HTTP NDJSON endpoint.
type IXPConfig struct {
	IXFile         string `mapstructure:"ix_file"`
	IXStream       string `mapstructure:"ix_stream"`
	NetixlanFile   string `mapstructure:"netixlan_file"`
	NetixlanStream string `mapstructure:"netixlan_stream"`

	// LGDumpPath is an optional directory of looking-glass neighbor dumps
	// merged over the membership data at highest precedence.
	LGDumpPath string `mapstructure:"lg_dump_path"`
}

// FetchConfig configures the companion fetchers (`ipmeta fetch ...`).
type FetchConfig struct {
	OutputDir         string `mapstructure:"output_dir"`
	PDBAPI            string `mapstructure:"pdb_api"`
	Workers           int    `mapstructure:"workers"`             // concurrent neighbor queries per looking glass
	RequestsPerMinute int    `mapstructure:"requests_per_minute"` // PeeringDB API budget
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`

	// LookingGlasses maps a short name (used in dump file names) to an
	// alice-lg instance.
	LookingGlasses map[string]LookingGlassConfig `mapstructure:"looking_glasses"`
}

// LookingGlassConfig is one alice-lg API endpoint to crawl.
type LookingGlassConfig struct {
	URL     string `mapstructure:"url"`
	Workers int    `mapstructure:"workers"` // 0 = fetch.workers
}
