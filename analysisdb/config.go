package analysisdb

// Config holds configuration options for the Client
type Config struct {
	DBPath  string // SQLite path; defaults to an in-memory database
	verbose bool   // Verbose logging
}

func NewConfig(dbPath string, verbose bool) Config {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	return Config{
		DBPath:  dbPath,
		verbose: verbose,
	}
}
