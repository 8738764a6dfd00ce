package cmd

import "github.com/spf13/viper"

func settingDefaultConfig() {
	// Enable automatic environment variable binding
	viper.AutomaticEnv()

	// Map environment variables to Viper keys for the HTTP server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Map environment variables to Viper keys for the masumi payment service
	viper.BindEnv("payment.base_url", "PAYMENT_SERVICE_URL")
	viper.BindEnv("payment.api_key", "PAYMENT_API_KEY")
	viper.BindEnv("payment.agent_identifier", "AGENT_IDENTIFIER")
	viper.BindEnv("payment.network", "MASUMI_NETWORK")

	// Map environment variables to Viper keys for agent execution
	viper.BindEnv("agent.task_delay", "AGENT_TASK_DELAY")

	// Map environment variables to Viper keys for Weaviate
	viper.BindEnv("weaviate.url", "WEAVIATE_URL")
	viper.BindEnv("weaviate.scheme", "WEAVIATE_SCHEME")

	// Map environment variables to Viper keys for rate limiting
	viper.BindEnv("ratelimit.start_job_per_minute", "RATELIMIT_START_JOB_PER_MINUTE")
	viper.BindEnv("ratelimit.start_job_burst", "RATELIMIT_START_JOB_BURST")

	// Set default values for the HTTP server
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")

	// Set default values for the masumi payment service
	viper.SetDefault("payment.base_url", "https://payment.masumi.network/api/v1")
	viper.SetDefault("payment.api_key", "mock_api_key")
	viper.SetDefault("payment.agent_identifier", "mock_agent_id")
	viper.SetDefault("payment.network", "Preprod")

	// Set default values for agent execution
	viper.SetDefault("agent.task_delay", "5s")

	// Set default values for Weaviate
	viper.SetDefault("weaviate.url", "weaviate:8080")
	viper.SetDefault("weaviate.scheme", "http")

	// Set default values for rate limiting
	viper.SetDefault("ratelimit.start_job_per_minute", 5)
	viper.SetDefault("ratelimit.start_job_burst", 5)
}
