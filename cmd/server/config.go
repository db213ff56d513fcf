package main

// Config defines the server-side environment variables. Flags override
// the listen port for the CLI contract.
type Config struct {
	Host     string `env:"NEXUS_HOST,default=0.0.0.0"`
	Port     int    `env:"NEXUS_PORT,default=9999"`
	DataFile string `env:"NEXUS_DATA_FILE,default=nexus_data.json"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}
