package config

import "testing"

func TestParseRejectsUnknownCluster(t *testing.T) {
	if _, err := Parse([]string{"--cluster", "testnet"}); err == nil {
		t.Fatal("expected an error for an unknown --cluster value")
	}
}

func TestParseRequiresWalletOnMain(t *testing.T) {
	if _, err := Parse([]string{"--cluster", "main"}); err == nil {
		t.Fatal("expected an error when --cluster=main is given without --wallet")
	}
}

func TestParseDefaultsRPCURLPerCluster(t *testing.T) {
	localCfg, err := Parse([]string{"--cluster", "local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if localCfg.RPCURL != defaultRPCURL(ClusterLocal) {
		t.Errorf("expected local default RPC URL, got %s", localCfg.RPCURL)
	}

	mainCfg, err := Parse([]string{"--cluster", "main", "--wallet", "/tmp/id.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mainCfg.RPCURL != defaultRPCURL(ClusterMain) {
		t.Errorf("expected main default RPC URL, got %s", mainCfg.RPCURL)
	}
}

func TestParseWebsocketDefaultsTrueForMainFalseForLocal(t *testing.T) {
	localCfg, _ := Parse([]string{"--cluster", "local"})
	if localCfg.Websocket {
		t.Error("expected --websocket to default false for local")
	}

	mainCfg, _ := Parse([]string{"--cluster", "main", "--wallet", "/tmp/id.json"})
	if !mainCfg.Websocket {
		t.Error("expected --websocket to default true for main")
	}
}

func TestParseExplicitWebsocketFalseOverridesMainDefault(t *testing.T) {
	cfg, err := Parse([]string{"--cluster", "main", "--wallet", "/tmp/id.json", "--websocket=false"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Websocket {
		t.Error("expected an explicit --websocket=false to override the main-cluster default")
	}
}

func TestParseAppliesMaxPoolsPerDexDefault(t *testing.T) {
	cfg, err := Parse([]string{"--cluster", "local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxPoolsPerDex != 40 {
		t.Errorf("expected default max-pools-per-dex of 40, got %d", cfg.MaxPoolsPerDex)
	}
}
