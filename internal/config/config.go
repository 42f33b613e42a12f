package config

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetServerURL() string
	GetDataFolder() string
	GetCallbackAddr() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
