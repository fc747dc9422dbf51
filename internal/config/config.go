// Package config resolves the engine's CLI flags and environment variables
// into a single immutable Config. Deployment settings, secrets included
// (DATABASE_URL, DASHBOARD_AUTH_TOKEN, ALLOWED_ORIGINS, PORT), are read from
// the environment rather than flags, since they vary by deployment rather
// than by invocation.
package config

import (
	"flag"
	"fmt"
	"os"
)

// Cluster selects the deployment target: "local" simulates every assembled
// transaction instead of submitting it; "main" requires a funded wallet and
// submits for real.
type Cluster string

const (
	ClusterLocal Cluster = "local"
	ClusterMain  Cluster = "main"
)

// defaultRPCURL is the per-cluster RPC endpoint used when --rpc-url isn't
// given explicitly.
func defaultRPCURL(c Cluster) string {
	if c == ClusterMain {
		return "https://api.mainnet-beta.solana.com"
	}
	return "http://localhost:8899"
}

// Config is the fully-resolved set of startup parameters. Exit code 2 is
// used for configuration errors (missing wallet on main, unknown cluster);
// any other unrecoverable startup failure exits non-zero.
type Config struct {
	Cluster        Cluster
	WalletPath     string
	RPCURL         string
	DryRun         bool
	Websocket      bool
	MaxPoolsPerDex int
	PoolWhitelist  string
	ProgramID      string

	PoolDescriptorDir string
	TokenListPath     string

	DatabaseURL        string
	DashboardAuthToken string
	AllowedOrigins     string
	DashboardPort      string
	NoDashboard        bool
}

// Parse resolves flags from args (normally os.Args[1:]) into a Config. A
// configuration error (bad/missing --cluster, missing --wallet on main) is
// reported so the caller can exit with code 2.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("arb-engine", flag.ContinueOnError)

	cluster := fs.String("cluster", "", "deployment target: local or main (required)")
	wallet := fs.String("wallet", "", "path to the fee-payer keypair JSON (required when cluster=main)")
	rpcURL := fs.String("rpc-url", "", "Solana RPC endpoint (defaults per cluster)")
	dryRun := fs.Bool("dry-run", false, "suppress transaction submission")
	websocketFlag := fs.Bool("websocket", false, "enable the account/logs subscription manager")
	maxPools := fs.Int("max-pools-per-dex", 40, "cap on pools loaded per DEX variant")
	whitelist := fs.String("pool-whitelist", "", "optional JSON whitelist path: {dex_name: [address,...]}")
	programID := fs.String("program-id", "", "on-chain arbitrage program id")
	poolDescDir := fs.String("pool-descriptors", "pools", "root directory of per-DEX pool descriptor JSON subdirectories")
	tokenList := fs.String("tokens", "", "JSON token watch-list for the companion REST detector")
	noDashboard := fs.Bool("no-dashboard", false, "disable the operator HTTP/WS dashboard")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	c := Cluster(*cluster)
	if c != ClusterLocal && c != ClusterMain {
		return Config{}, fmt.Errorf("configuration error: --cluster must be %q or %q, got %q", ClusterLocal, ClusterMain, *cluster)
	}
	if c == ClusterMain && *wallet == "" {
		return Config{}, fmt.Errorf("configuration error: --wallet is required when --cluster=%s", ClusterMain)
	}

	url := *rpcURL
	if url == "" {
		url = defaultRPCURL(c)
	}

	// --websocket defaults true for main, false otherwise; an explicit
	// -websocket=false on the command line always wins.
	websocketSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "websocket" {
			websocketSet = true
		}
	})
	ws := *websocketFlag
	if !websocketSet {
		ws = c == ClusterMain
	}

	return Config{
		Cluster:        c,
		WalletPath:     *wallet,
		RPCURL:         url,
		DryRun:         *dryRun,
		Websocket:      ws,
		MaxPoolsPerDex: *maxPools,
		PoolWhitelist:  *whitelist,
		ProgramID:      *programID,

		PoolDescriptorDir: *poolDescDir,
		TokenListPath:     *tokenList,

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DashboardAuthToken: os.Getenv("DASHBOARD_AUTH_TOKEN"),
		AllowedOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		DashboardPort:      getEnvOrDefault("PORT", "5339"),
		NoDashboard:        *noDashboard,
	}, nil
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
