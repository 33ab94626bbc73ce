package config

import (
	"os"
	"strconv"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env     string  `yaml:"env"`
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Web     Web     `yaml:"web"`
	Gate    Gate    `yaml:"gate"`
}

type Server struct {
	Port          int    `yaml:"port"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Storage struct {
	Type      string `yaml:"type"` // local, s3
	BasePath  string `yaml:"basePath"`
	BaseURL   string `yaml:"baseURL"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type Web struct {
	Port     int               `yaml:"port"`
	UseStub  bool              `yaml:"useStub"`
	APIURLs  map[string]string `yaml:"apiURLs"`
	APIToken string            `yaml:"apiToken"`
	// FetchMode is "replace" or "append".
	FetchMode string `yaml:"fetchMode"`
}

type Gate struct {
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"` // bcrypt hash
	StaticDir string `yaml:"staticDir"`
	Realm     string `yaml:"realm"`
}

func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: Server{
			Port:          8000,
			PostgresDsn:   "host=localhost user=postgres password=postgres dbname=postgres port=5432 sslmode=disable",
			RedisAddr:     "localhost:6379",
			TraceEndpoint: "localhost:4318",
		},
		Storage: Storage{
			Type:     "local",
			BasePath: "./uploads",
			BaseURL:  "http://localhost:8000/files",
		},
		Web: Web{
			Port: 3000,
			APIURLs: map[string]string{
				EnvDevelopment: "http://localhost:8000",
				EnvProduction:  "https://api.works-uploader.example.com",
			},
			FetchMode: "replace",
		},
		Gate: Gate{
			Port:      8080,
			StaticDir: "./dist",
			Realm:     "Authorization Required",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is read
// first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "failed to open config file")
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, errors.Wrap(err, "failed to parse config file")
		}
	}

	if err := config.applyEnv(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	if env := os.Getenv("WORKS_ENV"); env != "" {
		c.Env = env
	}
	if url := os.Getenv("WORKS_API_URL"); url != "" {
		if c.Web.APIURLs == nil {
			c.Web.APIURLs = map[string]string{}
		}
		c.Web.APIURLs[c.Env] = url
	}
	if dsn := os.Getenv("WORKS_POSTGRES_DSN"); dsn != "" {
		c.Server.PostgresDsn = dsn
	}
	if addr := os.Getenv("WORKS_REDIS_ADDR"); addr != "" {
		c.Server.RedisAddr = addr
	}
	if addr := os.Getenv("WORKS_MEMCACHED_ADDR"); addr != "" {
		c.Server.MemcachedAddr = addr
	}
	if secret := os.Getenv("WORKS_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if user := os.Getenv("BASIC_USER"); user != "" {
		c.Gate.User = user
	}
	if password := os.Getenv("BASIC_PASSWORD"); password != "" {
		c.Gate.Password = password
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		c.Gate.StaticDir = dir
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return errors.Wrap(err, "invalid PORT")
		}
		c.Server.Port = port
		c.Web.Port = port
		c.Gate.Port = port
	}
	return nil
}

// APIURL returns the works API base URL for the configured environment.
func (c Config) APIURL() (string, error) {
	url, ok := c.Web.APIURLs[c.Env]
	if !ok || url == "" {
		return "", errors.Errorf("no api url configured for env %q", c.Env)
	}
	return url, nil
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}
