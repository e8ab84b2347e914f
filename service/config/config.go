package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Default mint addresses (Solana mainnet).
const (
	defaultRPCURL   = "https://api.mainnet-beta.solana.com"
	defaultUSDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	defaultUSDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	defaultSSFMint  = "GQgPoRVDbxy47neUJ9j7zF6TrCXWLPUbs5W7y3rnB84L"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior:
// a server with a missing or malformed treasury key must never accept requests.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL string
	RPCRateLimit int // requests per second against the RPC endpoint

	// Treasury signing key. Loaded once at startup, never per-request.
	TreasuryKey solana.PrivateKey

	// Token mints
	USDCMint solana.PublicKey
	USDTMint solana.PublicKey
	SSFMint  solana.PublicKey

	// Sale parameters
	SSFDecimals    uint8
	PricePerToken  math.LegacyDec
	MinPurchaseUSD math.LegacyDec

	// NATS configuration. Empty URL disables swap event publishing.
	NATSURL string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", defaultRPCURL)

	rateLimit, err := parseInt("RPC_RATE_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else if rateLimit <= 0 {
		errs = append(errs, fmt.Errorf("RPC_RATE_LIMIT must be positive, got %d", rateLimit))
	} else {
		cfg.RPCRateLimit = rateLimit
	}

	// Treasury key. Accepts a base58 string or a JSON byte array.
	secret := os.Getenv("TREASURY_SECRET_KEY")
	if secret == "" {
		errs = append(errs, fmt.Errorf("TREASURY_SECRET_KEY is required"))
	} else {
		key, err := ParseTreasuryKey(secret)
		if err != nil {
			errs = append(errs, fmt.Errorf("TREASURY_SECRET_KEY: %w", err))
		} else {
			cfg.TreasuryKey = key
		}
	}

	// Token mints
	for _, m := range []struct {
		env      string
		fallback string
		dst      *solana.PublicKey
	}{
		{"USDC_MINT_ADDRESS", defaultUSDCMint, &cfg.USDCMint},
		{"USDT_MINT_ADDRESS", defaultUSDTMint, &cfg.USDTMint},
		{"SSF_MINT_ADDRESS", defaultSSFMint, &cfg.SSFMint},
	} {
		raw := getEnvOrDefault(m.env, m.fallback)
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid mint address %q: %w", m.env, raw, err))
			continue
		}
		*m.dst = pk
	}

	// Sale parameters
	decimals, err := parseInt("SSF_DECIMALS", 6)
	if err != nil {
		errs = append(errs, err)
	} else if decimals < 0 || decimals > 18 {
		errs = append(errs, fmt.Errorf("SSF_DECIMALS must be between 0 and 18, got %d", decimals))
	} else {
		cfg.SSFDecimals = uint8(decimals)
	}

	price, err := parseDec("PRICE_PER_TOKEN", "0.25")
	if err != nil {
		errs = append(errs, err)
	} else if !price.IsPositive() {
		errs = append(errs, fmt.Errorf("PRICE_PER_TOKEN must be positive, got %s", price))
	} else {
		cfg.PricePerToken = price
	}

	minPurchase, err := parseDec("MIN_PURCHASE_USD", "1.00")
	if err != nil {
		errs = append(errs, err)
	} else if minPurchase.IsNegative() {
		errs = append(errs, fmt.Errorf("MIN_PURCHASE_USD cannot be negative, got %s", minPurchase))
	} else {
		cfg.MinPurchaseUSD = minPurchase
	}

	// NATS configuration (optional)
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if len(c.TreasuryKey) != 64 {
		errs = append(errs, fmt.Errorf("TreasuryKey must be a 64-byte ed25519 key"))
	}

	if c.USDCMint.IsZero() {
		errs = append(errs, fmt.Errorf("USDCMint is required"))
	}

	if c.USDTMint.IsZero() {
		errs = append(errs, fmt.Errorf("USDTMint is required"))
	}

	if c.SSFMint.IsZero() {
		errs = append(errs, fmt.Errorf("SSFMint is required"))
	}

	if c.USDCMint.Equals(c.USDTMint) {
		errs = append(errs, fmt.Errorf("USDCMint and USDTMint must be different"))
	}

	if c.PricePerToken.IsNil() || !c.PricePerToken.IsPositive() {
		errs = append(errs, fmt.Errorf("PricePerToken must be positive"))
	}

	if c.MinPurchaseUSD.IsNil() || c.MinPurchaseUSD.IsNegative() {
		errs = append(errs, fmt.Errorf("MinPurchaseUSD cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// TreasuryAddress returns the public key of the treasury signing key.
func (c *Config) TreasuryAddress() solana.PublicKey {
	return c.TreasuryKey.PublicKey()
}

// ParseTreasuryKey decodes a treasury secret key from its environment encoding.
// Two formats are accepted: a base58 string, or a JSON array of byte values as
// exported by solana-keygen.
func ParseTreasuryKey(raw string) (solana.PrivateKey, error) {
	var keyBytes []byte

	if len(raw) > 0 && raw[0] == '[' {
		var ints []int
		if err := json.Unmarshal([]byte(raw), &ints); err != nil {
			return nil, fmt.Errorf("invalid JSON key array: %w", err)
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid JSON key array: byte value %d out of range", v)
			}
			keyBytes = append(keyBytes, byte(v))
		}
	} else {
		decoded, err := base58.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 key: %w", err)
		}
		keyBytes = decoded
	}

	if len(keyBytes) != 64 {
		return nil, fmt.Errorf("secret key must be 64 bytes, got %d", len(keyBytes))
	}

	return solana.PrivateKey(keyBytes), nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDec parses a decimal value from an environment variable or uses a default.
func parseDec(key, defaultValue string) (math.LegacyDec, error) {
	value := getEnvOrDefault(key, defaultValue)
	dec, err := math.LegacyNewDecFromStr(value)
	if err != nil {
		return math.LegacyDec{}, fmt.Errorf("%s: invalid decimal %q: %w", key, value, err)
	}
	return dec, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
