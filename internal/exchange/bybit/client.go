package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Config holds the configuration for the Bybit adapter
type Config struct {
	APIKey    string
	APISecret string
	Category  string // linear, inverse, spot
	Testnet   bool
	Demo      bool // demo trading environment (paper trading)
}

// Adapter implements exchange.MarketAdapter against the Bybit v5 API
type Adapter struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool
}

// NewAdapter creates a new Bybit market adapter
func NewAdapter(config Config) *Adapter {
	var baseURL string
	if config.Demo {
		baseURL = "https://api-demo.bybit.com"
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	category := config.Category
	if category == "" {
		category = "linear"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Adapter{
		httpClient: httpClient,
		category:   category,
		testnet:    config.Testnet,
		demo:       config.Demo,
	}
}

// GetName returns the adapter name
func (a *Adapter) GetName() string {
	return "bybit"
}

// IsDemo returns whether the adapter targets the demo environment
func (a *Adapter) IsDemo() bool {
	return a.demo
}

// GetEnvironment returns a string describing the current environment
func (a *Adapter) GetEnvironment() string {
	if a.demo {
		return "demo"
	} else if a.testnet {
		return "testnet"
	}
	return "mainnet"
}
