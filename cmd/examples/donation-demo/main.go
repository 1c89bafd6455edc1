// Package main walks through a pooled donation from registration to claim
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coventry/RSADonations/pkg/config"
	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
	"github.com/coventry/RSADonations/pkg/custody"
	"github.com/coventry/RSADonations/pkg/events"
	"github.com/coventry/RSADonations/pkg/keyfetch"
	"github.com/coventry/RSADonations/pkg/logger"
	"github.com/coventry/RSADonations/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: temporary directory)")
	serve := flag.Bool("serve", false, "serve GET /ssl_key/{domain} after the walkthrough")
	flag.Parse()

	fmt.Println("=== Pooled RSA Donation Demo ===")

	tmpDir, err := os.MkdirTemp("", "rsadonations-demo-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if *configPath == "" {
		*configPath = filepath.Join(tmpDir, "config.toml")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DataDir == config.Default().DataDir {
		cfg.DataDir = filepath.Join(tmpDir, "data")
	}
	if cfg.AuditLogPath == "" {
		cfg.AuditLogPath = filepath.Join(tmpDir, "audit.jsonl")
	}
	fmt.Printf("Config: %s (backend %s)\n\n", *configPath, cfg.Backend)
	logger.SetGlobalLogger(cfg.Logger())

	db, err := cfg.OpenDatabase()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	audit, err := events.NewAuditLog(cfg.AuditLogPath)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer audit.Close()

	metrics, err := custody.NewMetrics(cfg.MetricsNamespace, prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	bank := custody.NewMemoryBank()
	recorder := events.NewRecorder()
	svc, err := custody.NewService(db,
		custody.WithLogger(logger.Global()),
		custody.WithEmitter(events.Multi{audit, recorder}),
		custody.WithBank(bank),
		custody.WithMetrics(metrics),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	logger.Info("custody service ready")

	var (
		donor     = common.HexToAddress("0x1000000000000000000000000000000000000001")
		recipient = common.HexToAddress("0x2000000000000000000000000000000000000002")
		relayer   = common.HexToAddress("0x3000000000000000000000000000000000000003")
		ctx       = context.Background()
	)

	// Step 1: the key holder generates a key and stores it encrypted
	fmt.Println("Step 1: Generating 2048-bit RSA key with e = 3...")
	priv, err := rsakey.GenerateKey(2048, 3)
	if err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	defer priv.Destroy()

	keyPath := cfg.KeyStorePath
	if keyPath == "" {
		keyPath = filepath.Join(tmpDir, "holder.key")
	}
	store, err := storage.NewFileKeyStore(storage.DefaultKeyStoreConfig(keyPath))
	if err != nil {
		log.Fatalf("Failed to create key store: %v", err)
	}
	password := "DonationDemoPassword1"
	if err := store.Save(priv, password); err != nil {
		log.Fatalf("Failed to save key: %v", err)
	}
	fmt.Printf("  ✓ Key hash: %s\n", priv.PublicKey.Hash().Hex())
	fmt.Printf("  ✓ Private key encrypted at %s\n", keyPath)

	// Step 2: donations
	fmt.Println("\nStep 2: Donating twice to the key...")
	deadline := time.Now().Add(time.Hour).Unix()
	receipt, err := svc.Donate(ctx, custody.DonateRequest{Donor: donor, Key: priv.PublicKey, Amount: big.NewInt(1), Deadline: deadline})
	if err != nil {
		log.Fatalf("Donation failed: %v", err)
	}
	keyHash := receipt.KeyHash
	receipt, err = svc.DonateToKey(ctx, donor, keyHash, big.NewInt(1), deadline)
	if err != nil {
		log.Fatalf("Donation failed: %v", err)
	}
	fmt.Printf("  ✓ Pool: %s, donor total: %s\n", receipt.Pool, receipt.DonorAmount)

	// Step 3: early recovery
	fmt.Println("\nStep 3: Donor tries to recover before the deadline...")
	result, err := svc.Recover(ctx, donor, keyHash)
	if err != nil {
		log.Fatalf("Recover failed: %v", err)
	}
	fmt.Printf("  ✓ Outcome: %s\n", result.Outcome)

	// Step 4: relayer asks for a challenge, key holder signs it
	fmt.Println("\nStep 4: Key holder answers the relayer's challenge...")
	holderKey, err := store.Load(password)
	if err != nil {
		log.Fatalf("Failed to load key: %v", err)
	}
	defer holderKey.Destroy()

	reward := big.NewInt(1)
	challenge, err := svc.Challenge(keyHash, recipient, reward, relayer)
	if err != nil {
		log.Fatalf("Challenge failed: %v", err)
	}
	signature, err := holderKey.Sign(challenge)
	if err != nil {
		log.Fatalf("Sign failed: %v", err)
	}
	fmt.Println("  ✓ Signature computed off-ledger")

	// Step 5: claim
	fmt.Println("\nStep 5: Relayer submits the claim...")
	claimed, err := svc.Claim(ctx, custody.ClaimRequest{
		Key:           keyHash,
		Recipient:     recipient,
		RelayerReward: reward,
		Signature:     signature,
		Invoker:       relayer,
	})
	if err != nil {
		log.Fatalf("Claim failed: %v", err)
	}
	fmt.Printf("  ✓ Swept %s, recipient got %s, relayer got %s, nonce now %d\n",
		claimed.Swept, bank.Balance(recipient), bank.Balance(relayer), claimed.Nonce)

	// Step 6: late recovery
	fmt.Println("\nStep 6: Donor tries to recover after the claim...")
	result, err = svc.Recover(ctx, donor, keyHash)
	if err != nil {
		log.Fatalf("Recover failed: %v", err)
	}
	fmt.Printf("  ✓ Outcome: %s\n", result.Outcome)

	fmt.Println("\nEvents:")
	for _, typ := range recorder.Types() {
		fmt.Printf("  - %s\n", typ)
	}
	if stats, err := audit.Stats(); err == nil && stats.Enabled {
		fmt.Printf("Audit log: %s (%d entries, %d bytes)\n", stats.FilePath, stats.Entries, stats.FileSize)
	}

	if !*serve {
		fmt.Println("\n=== Demo Complete ===")
		return
	}

	timeout, err := cfg.FetchTimeout()
	if err != nil {
		log.Fatalf("Invalid key fetch timeout: %v", err)
	}
	fetcher := &keyfetch.Fetcher{Timeout: timeout}
	fmt.Printf("\nServing GET /ssl_key/{domain} on %s\n", cfg.KeyFetch.ListenAddress)
	server := &http.Server{
		Addr:              cfg.KeyFetch.ListenAddress,
		Handler:           keyfetch.NewRouter(fetcher, logger.Global(), keyfetch.WithRateLimit(cfg.KeyFetch.RatePerSecond)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Error(fmt.Sprintf("key fetch server stopped: %v", err))
		os.Exit(1)
	}
}
