package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rawblock/arb-engine/internal/arbitrage"
	"github.com/rawblock/arb-engine/internal/config"
	"github.com/rawblock/arb-engine/internal/dashboard"
	"github.com/rawblock/arb-engine/internal/graph"
	"github.com/rawblock/arb-engine/internal/oplog"
	"github.com/rawblock/arb-engine/internal/pool"
	"github.com/rawblock/arb-engine/internal/pooldesc"
	"github.com/rawblock/arb-engine/internal/registry"
	"github.com/rawblock/arb-engine/internal/restdetector"
	"github.com/rawblock/arb-engine/internal/store"
	"github.com/rawblock/arb-engine/internal/subscription"
	"github.com/rawblock/arb-engine/internal/txassembler"
	"github.com/rawblock/arb-engine/pkg/models"
	"lukechampine.com/uint128"
)

// dexVariants lists the per-DEX subdirectories the pool descriptor loader
// reads: one directory, one pool type, per variant.
var dexVariants = map[string]models.DexVariant{
	"orca":      models.DexOrca,
	"aldrin":    models.DexAldrin,
	"saber":     models.DexSaber,
	"mercurial": models.DexMercurial,
	"serum":     models.DexSerum,
}

// referenceStartAmount is the reference trade size the search walks from,
// expressed in the start mint's smallest unit. Sized well below typical
// pool reserves so the quote stays in the low-slippage region.
var referenceStartAmount = uint128.From64(100_000)

func main() {
	log.Println("Starting arb-engine...")

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Printf("FATAL: %v", err)
		os.Exit(2)
	}

	// ─── Optional Postgres persistence ─────────────────────────────────
	// An unreachable database warns and is skipped rather than failing
	// startup — opportunities still reach the JSONL log either way.
	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: failed to connect to Postgres, continuing without persisting opportunities: %v", err)
		} else {
			defer st.Close()
			if err := st.InitSchema("internal/store/schema.sql"); err != nil {
				log.Printf("Warning: store schema init failed: %v", err)
			}
		}
	}

	// ─── Opportunity log ────────────────────────────────────────────────
	log1, err := oplog.New("opportunities.jsonl")
	if err != nil {
		log.Fatalf("FATAL: failed to open opportunity log: %v", err)
	}

	// ─── Dashboard ──────────────────────────────────────────────────────
	var hub *dashboard.Hub
	var feed *dashboard.Feed
	if !cfg.NoDashboard {
		hub = dashboard.NewHub()
		go hub.Run()
		feed = dashboard.NewFeed(hub)
	}

	// ─── Pool descriptor loading ────────────────────────────────────────
	wl, err := pooldesc.LoadWhitelist(cfg.PoolWhitelist)
	if err != nil {
		log.Printf("Warning: failed to load pool whitelist, continuing unfiltered: %v", err)
	}

	reg := registry.New()
	g := graph.New()
	for subdir, variant := range dexVariants {
		dir := cfg.PoolDescriptorDir + "/" + subdir
		pools, err := pooldesc.LoadDir(dir, variant, wl, cfg.MaxPoolsPerDex)
		if err != nil {
			log.Printf("Warning: failed to load %s pool descriptors from %s: %v", variant, dir, err)
			continue
		}
		for _, p := range pools {
			reg.Register(p)
			g.AddPool(p)
		}
		log.Printf("Loaded %d %s pools from %s", len(pools), variant, dir)
	}
	if g.MintCount() == 0 {
		log.Fatalf("FATAL: no pools loaded from %s; nothing to search", cfg.PoolDescriptorDir)
	}

	// ─── RPC client (used by the transaction assembler) ─────────────────
	rpcClient := rpc.New(cfg.RPCURL)

	var signer solana.PrivateKey
	if cfg.WalletPath != "" {
		signer, err = solana.PrivateKeyFromSolanaKeygenFile(cfg.WalletPath)
		if err != nil {
			log.Fatalf("FATAL: failed to load wallet %s: %v", cfg.WalletPath, err)
		}
	}

	var programID solana.PublicKey
	if cfg.ProgramID != "" {
		programID, err = solana.PublicKeyFromBase58(cfg.ProgramID)
		if err != nil {
			log.Fatalf("FATAL: invalid --program-id: %v", err)
		}
	}

	cluster := txassembler.ClusterLocal
	if cfg.Cluster == config.ClusterMain {
		cluster = txassembler.ClusterMain
	}
	var owner solana.PublicKey
	if signer != nil {
		owner = signer.PublicKey()
	}
	assembler := txassembler.New(rpcClient, cluster, programID, owner)

	// ─── Subscription manager ───────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Websocket {
		mgr := subscription.New("", reg.Addresses(), nil)
		go mgr.Run(ctx)
		go func() {
			for update := range mgr.Updates {
				if !update.Ok {
					log.Printf("[Engine] subscription manager gave up reconnecting for %s", update.Address)
					continue
				}
				reg.Apply(update.Address, update.Data)
			}
		}()
		go func() {
			for range mgr.NewPools {
				// Resolving a log-detected creation candidate to an actual
				// pool address would require parsing the referenced
				// transaction; left unimplemented — see DESIGN.md.
			}
		}()
		if feed != nil {
			go func() {
				for ev := range mgr.Failovers {
					feed.RecordFailover(dashboard.FailoverEvent{From: ev.From, To: ev.To, Reason: ev.Reason})
				}
			}()
		}
	} else {
		log.Println("Subscription manager disabled (--websocket=false); pool reserves will not update live")
	}

	// ─── Arbitrage search loop ──────────────────────────────────────────
	searcher := arbitrage.NewSearcher(g, arbitrage.Config{UseJito: false})
	go runSearchLoop(ctx, g, searcher, reg, assembler, signer, log1, feed, cfg.DryRun)

	// ─── Companion REST detector (supplemented) ─────────────────────────
	if cfg.TokenListPath != "" {
		tokens, err := restdetector.LoadTokens(cfg.TokenListPath)
		if err != nil {
			log.Printf("Warning: failed to load REST detector token list: %v", err)
		} else {
			sources := []restdetector.PriceSource{
				restdetector.NewRateLimited(restdetector.NewJupiter(), 5),
				restdetector.NewRateLimited(restdetector.NewDexScreener(), 3),
			}
			poller := restdetector.NewPoller(sources, tokens, restdetector.NewDetector(0.005))
			go poller.Run(ctx, 30*time.Second, func(o models.RestOpportunity) {
				if err := log1.LogRest(o); err != nil {
					log.Printf("Warning: failed to log REST opportunity: %v", err)
				}
				if st != nil {
					if err := st.SaveRestOpportunity(context.Background(), o); err != nil {
						log.Printf("Warning: failed to persist REST opportunity: %v", err)
					}
				}
				if feed != nil {
					feed.RecordRest(o)
				}
			})
		}
	}

	// ─── Dashboard HTTP server ──────────────────────────────────────────
	if !cfg.NoDashboard {
		r := dashboard.SetupRouter(reg, st, feed, hub)
		log.Printf("Dashboard listening on :%s", cfg.DashboardPort)
		if err := r.Run(":" + cfg.DashboardPort); err != nil {
			log.Fatalf("FATAL: dashboard server failed: %v", err)
		}
	} else {
		select {}
	}
}

// runSearchLoop drives the single foreground search worker, assembling and
// submitting a transaction for each opportunity found from every mint the
// graph has assigned an index to.
func runSearchLoop(ctx context.Context, g *graph.Graph, searcher *arbitrage.Searcher, reg *registry.Registry, assembler *txassembler.Assembler, signer solana.PrivateKey, log1 *oplog.Logger, feed *dashboard.Feed, dryRun bool) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for idx := 0; idx < g.MintCount(); idx++ {
				for _, cand := range searcher.Search(models.MintIndex(idx), referenceStartAmount) {
					handleCandidate(ctx, g, reg, assembler, signer, cand, log1, feed, dryRun)
				}
			}
		}
	}
}

func handleCandidate(ctx context.Context, g *graph.Graph, reg *registry.Registry, assembler *txassembler.Assembler, signer solana.PrivateKey, cand models.CycleCandidate, log1 *oplog.Logger, feed *dashboard.Feed, dryRun bool) {
	pathMints := make([]string, len(cand.Path))
	for i, idx := range cand.Path {
		pathMints[i] = g.Mint(idx).String()
	}

	opp := models.OnChainOpportunity{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Kind:             "onchain_cycle",
		StartMint:        pathMints[0],
		PathMints:        pathMints,
		PathPools:        cand.PoolPath,
		StartAmount:      cand.StartAmt.String(),
		EndAmount:        cand.EndAmt.String(),
		SpreadOptimistic: cand.Optimistic * 100,
		SpreadRealistic:  cand.Realistic * 100,
		MinOutput:        cand.MinOutput.String(),
		DryRun:           dryRun,
	}

	if !dryRun && signer != nil {
		pools := make([]pool.Pool, 0, len(cand.PoolAddrs))
		resolved := true
		for _, addr := range cand.PoolAddrs {
			p, ok := reg.PoolByAddress(addr)
			if !ok {
				log.Printf("[Engine] candidate references unregistered pool address %s, aborting assembly", addr)
				resolved = false
				break
			}
			pools = append(pools, p)
		}
		if resolved {
			mints := make([]solana.PublicKey, len(cand.Path))
			for i, idx := range cand.Path {
				mints[i] = g.Mint(idx)
			}
			instrs, err := assembler.Assemble(ctx, cand, pools, mints)
			if err != nil {
				log.Printf("[Engine] failed to assemble transaction: %v", err)
			} else if result, err := assembler.Submit(ctx, instrs, signer); err != nil {
				log.Printf("[Engine] transaction submission failed: %v", err)
			} else if result.Signature != (solana.Signature{}) {
				opp.TxSignature = result.Signature.String()
			}
		}
	}

	if err := log1.LogOnChain(opp); err != nil {
		log.Printf("[Engine] failed to append opportunity log: %v", err)
	}
	if feed != nil {
		feed.RecordOnChain(opp)
	}
}
