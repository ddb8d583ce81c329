package config

type DBConfig struct {
	Path string `yaml:"path"`
	// InMemory keeps records in process memory only.
	InMemory bool `yaml:"inMemory"`
}

type MetricsConfig struct {
	// ListenAddr is the address of the prometheus endpoint, disabled when
	// empty.
	ListenAddr string `yaml:"listenAddr"`
}
