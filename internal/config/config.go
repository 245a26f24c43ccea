package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nftdeck/marketplace-ledger/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool
	LogPath string

	ApiPort     string
	HealthPort  string
	ApiCacheTtl int

	Marketplace   MarketplaceConfig
	Registry      RegistryConfig
	ElasticSearch ElasticSearchConfig
	Amqp          AmqpConfig
	Aws           AwsConfig
}

type MarketplaceConfig struct {
	// Operator is the marketplace's own account; token approvals must point
	// at it before an item can be listed.
	Operator string
}

type RegistryConfig struct {
	Url     string
	Debug   bool
	Timeout int
}

type ElasticSearchConfig struct {
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Aws              bool
	Username         string
	Password         string
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

type AmqpConfig struct {
	Uri     string
	Enabled bool
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Region    string
}

func Init(app string) {
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env, using environment")
	}

	initLogger(app)
}

func initLogger(app string) {
	log.NewLogger(Get().LogPath+"/"+app+".log", Get().Debug)
}

func Get() *Config {
	return &Config{
		Env:         getString("ENV", ""),
		Network:     getString("NETWORK", "mainnet"),
		Index:       getString("INDEX_NAME", "marketplace"),
		Debug:       getBool("DEBUG", false),
		LogPath:     getString("LOG_PATH", "./var/log"),
		ApiPort:     getString("API_PORT", "8080"),
		HealthPort:  getString("HEALTH_PORT", "8081"),
		ApiCacheTtl: getInt("API_CACHE_TTL", 5),
		Marketplace: MarketplaceConfig{
			Operator: getString("MARKETPLACE_OPERATOR", ""),
		},
		Registry: RegistryConfig{
			Url:     getString("REGISTRY_URL", ""),
			Timeout: getInt("REGISTRY_TIMEOUT", 30),
			Debug:   getBool("REGISTRY_DEBUG", false),
		},
		ElasticSearch: ElasticSearchConfig{
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Aws:              getBool("ELASTIC_SEARCH_AWS", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "/data/mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
		Amqp: AmqpConfig{
			Uri:     getString("AMQP_URI", ""),
			Enabled: getBool("AMQP_ENABLED", false),
		},
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Region:    getString("AWS_REGION", ""),
		},
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
