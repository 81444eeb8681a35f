package node

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/crypto"
)

// TokenConfig describes a fungible token the ledger accepts, the
// identifier is derived from the symbol when it is empty.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Decimals int32  `mapstructure:"decimals"`
	ID       string `mapstructure:"id"`
}

type Config struct {
	// network ID hash
	NetworkID [32]byte
	// identity of the ledger custody derived from the network ID
	LedgerID string
	// listen address of the http service
	Addr string
	// listen address of the gRPC service, disabled if empty
	RPCAddr string
	// database backend
	DBBackend string
	// database file path
	DBPath string
	// database file path of the in-process chain wallets
	ChainDBPath string
	// size of the balance cache
	CacheSize int
	// native asset metadata
	Native asset.Info
	// accepted fungible tokens
	Tokens []TokenConfig
	// kafka brokers for publishing ledger events
	KafkaBrokers []string
	KafkaTopic   string
	// log file path, logs go to stderr only if empty
	LogFile    string
	LogConsole bool
	Debug      bool
}

func NewConfig(v *viper.Viper) (*Config, error) {
	if v.GetString("network_id") == "" {
		return nil, errors.New("network ID is missing")
	}
	if v.GetString("addr") == "" {
		return nil, errors.New("network address is missing")
	}
	if v.GetString("native_symbol") == "" {
		return nil, errors.New("native symbol is missing")
	}

	backend := v.GetString("db_backend")
	if backend == "" {
		backend = "memdb"
	}
	dbPath := v.GetString("db_path")
	if backend == "boltdb" && dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	chainDBPath := v.GetString("chain_db_path")
	if chainDBPath == "" && dbPath != "" {
		chainDBPath = dbPath + ".chain"
	}
	if backend == "boltdb" && chainDBPath == dbPath {
		return nil, errors.New("chain db path must differ from db path")
	}
	if v.GetInt32("native_decimals") < 0 {
		return nil, fmt.Errorf("invalid native decimals %d", v.GetInt32("native_decimals"))
	}
	cacheSize := v.GetInt("cache_size")
	if cacheSize == 0 {
		cacheSize = 1024
	}
	if cacheSize < 0 {
		return nil, fmt.Errorf("invalid cache size %d", cacheSize)
	}

	brokers := v.GetStringSlice("kafka_brokers")
	if len(brokers) > 0 && v.GetString("kafka_topic") == "" {
		return nil, errors.New("kafka topic is empty")
	}

	networkID := sha256.Sum256([]byte(v.GetString("network_id")))
	ledgerID, _, err := crypto.GetLedgerKeypairFromSeed(networkID)
	if err != nil {
		return nil, fmt.Errorf("derive ledger ID failed: %v", err)
	}

	var tokens []TokenConfig
	if err := v.UnmarshalKey("tokens", &tokens); err != nil {
		return nil, fmt.Errorf("parse tokens failed: %v", err)
	}
	symbols := make(map[string]bool)
	symbols[v.GetString("native_symbol")] = true
	for i := range tokens {
		t := &tokens[i]
		if t.Symbol == "" {
			return nil, fmt.Errorf("token %d has no symbol", i)
		}
		if t.Decimals < 0 {
			return nil, fmt.Errorf("invalid decimals %d of token %s", t.Decimals, t.Symbol)
		}
		if symbols[t.Symbol] {
			return nil, fmt.Errorf("duplicate asset symbol %s", t.Symbol)
		}
		symbols[t.Symbol] = true
		if t.ID == "" {
			t.ID = crypto.GetAssetIDFromSymbol(networkID, t.Symbol)
		}
		if err := asset.Validate(asset.Token(t.ID)); err != nil {
			return nil, fmt.Errorf("token %s: %w", t.Symbol, err)
		}
	}

	c := Config{
		NetworkID:   networkID,
		LedgerID:    ledgerID,
		Addr:        v.GetString("addr"),
		RPCAddr:     v.GetString("rpc_addr"),
		DBBackend:   backend,
		DBPath:      dbPath,
		ChainDBPath: chainDBPath,
		CacheSize:   cacheSize,
		Native: asset.Info{
			Symbol:   v.GetString("native_symbol"),
			Decimals: v.GetInt32("native_decimals"),
		},
		Tokens:       tokens,
		KafkaBrokers: brokers,
		KafkaTopic:   v.GetString("kafka_topic"),
		LogFile:      v.GetString("log_file"),
		LogConsole:   v.GetBool("log_console"),
		Debug:        v.GetBool("debug"),
	}

	return &c, nil
}
