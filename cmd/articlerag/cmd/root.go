package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"articlerag/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "articlerag",
	Short: "articlerag: a web article question-answering system",
	Long: `articlerag ingests web articles into a searchable knowledge base and
answers questions over them. Articles are fetched, structured with a
language model, chunked, embedded, and stored in PostgreSQL plus
Elasticsearch.

Commands:
  serve   Start the HTTP API
  worker  Start the ingestion worker pool
  ingest  Ingest one URL synchronously
  query   Ask a question from the command line
  mcp     Start the MCP server over stdio`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/articlerag")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// ARTICLERAG_POSTGRES_DSN -> postgres.dsn
	viper.SetEnvPrefix("ARTICLERAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("postgres.dsn", "ARTICLERAG_POSTGRES_DSN")
	viper.BindEnv("elasticsearch.addresses", "ARTICLERAG_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "ARTICLERAG_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "ARTICLERAG_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "ARTICLERAG_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("elasticsearch.dimensions", "ARTICLERAG_ELASTICSEARCH_DIMENSIONS")
	viper.BindEnv("redis.enabled", "ARTICLERAG_REDIS_ENABLED")
	viper.BindEnv("redis.addr", "ARTICLERAG_REDIS_ADDR")
	viper.BindEnv("provider.base_url", "ARTICLERAG_PROVIDER_BASE_URL")
	viper.BindEnv("provider.api_key", "ARTICLERAG_PROVIDER_API_KEY")
	viper.BindEnv("models.embedding", "ARTICLERAG_MODELS_EMBEDDING")
	viper.BindEnv("models.structuring", "ARTICLERAG_MODELS_STRUCTURING")
	viper.BindEnv("models.answer", "ARTICLERAG_MODELS_ANSWER")
	viper.BindEnv("retrieval.top_k", "ARTICLERAG_RETRIEVAL_TOP_K")
	viper.BindEnv("fetch.timeout", "ARTICLERAG_FETCH_TIMEOUT")
	viper.BindEnv("fetch.user_agent", "ARTICLERAG_FETCH_USER_AGENT")
	viper.BindEnv("worker.count", "ARTICLERAG_WORKER_COUNT")
	viper.BindEnv("worker.poll_interval", "ARTICLERAG_WORKER_POLL_INTERVAL")
	viper.BindEnv("server.addr", "ARTICLERAG_SERVER_ADDR")
	viper.BindEnv("archive.enabled", "ARTICLERAG_ARCHIVE_ENABLED")
	viper.BindEnv("archive.endpoint", "ARTICLERAG_ARCHIVE_ENDPOINT")
	viper.BindEnv("archive.bucket", "ARTICLERAG_ARCHIVE_BUCKET")
	viper.BindEnv("archive.access_key_id", "ARTICLERAG_ARCHIVE_ACCESS_KEY_ID")
	viper.BindEnv("archive.secret_access_key", "ARTICLERAG_ARCHIVE_SECRET_ACCESS_KEY")
	viper.BindEnv("mcp.name", "ARTICLERAG_MCP_NAME")
	viper.BindEnv("mcp.version", "ARTICLERAG_MCP_VERSION")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("ARTICLERAG_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
