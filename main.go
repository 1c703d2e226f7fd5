package main

import (
	"flag"
	"fmt"
	"log"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/kutluhann/xorroute/api"
	"github.com/kutluhann/xorroute/config"
	"github.com/kutluhann/xorroute/constants"
	"github.com/kutluhann/xorroute/dht"
	"github.com/kutluhann/xorroute/id_tools"
)

func newLogger(level string) (*zap.Logger, error) {
	atom, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	return cfg.Build()
}

func main() {
	ip := flag.String("ip", "127.0.0.1", "Address peers reach this node on")
	port := flag.Uint("port", 9000, "Port peers reach this node on")
	httpPort := flag.Int("http", constants.HTTPPort, "HTTP API port")
	seeds := flag.String("seed", "", "Comma separated peers to record at startup (id@ip:port)")
	keySpace := flag.Int("key-space", 0, "Override ROUTING_KEY_SPACE")
	kay := flag.Int("kay", 0, "Override ROUTING_KAY")
	dataDir := flag.String("data", "", "Override NODE_DATA_DIR")
	flag.Parse()

	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}
	if *keySpace > 0 {
		cfg.KeySpace = *keySpace
	}
	if *kay > 0 {
		cfg.Kay = *kay
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: log level %q: %v", cfg.LogLevel, err)
	}
	defer logger.Sync()

	id_tools.SetDataDirectory(cfg.DataDir)
	privateKey, peerID, err := id_tools.LoadOrGenerate()
	if err != nil {
		logger.Fatal("loading identity", zap.Error(err))
	}
	cfg.SetPrivateKey(privateKey)
	if err := id_tools.VerifyIdentity(cfg.GetPrivateKey(), peerID); err != nil {
		logger.Fatal("identity verification failed", zap.Error(err))
	}

	addr, err := netip.ParseAddr(*ip)
	if err != nil {
		logger.Fatal("invalid -ip", zap.Error(err))
	}
	if *port == 0 || *port > 65535 {
		logger.Fatal("invalid -port", zap.Uint("port", *port))
	}
	self := dht.NewContact(dht.NodeID(peerID), addr, uint16(*port))

	policy, err := dht.ParseLookupPolicy(cfg.LookupPolicy)
	if err != nil {
		logger.Fatal("invalid lookup policy", zap.Error(err))
	}

	node, err := dht.NewNode(self, cfg.KeySpace, cfg.Kay, policy, logger)
	if err != nil {
		logger.Fatal("creating node", zap.Error(err))
	}
	logger.Info("node initialized",
		zap.Stringer("node_id", self.ID),
		zap.Int("key_space", cfg.KeySpace),
		zap.Int("kay", cfg.Kay),
		zap.Stringer("policy", policy))

	for _, seed := range strings.Split(*seeds, ",") {
		seed = strings.TrimSpace(seed)
		if seed == "" {
			continue
		}
		contact, err := dht.ParseContact(seed)
		if err != nil {
			logger.Warn("skipping seed", zap.String("seed", seed), zap.Error(err))
			continue
		}
		result, err := node.ObservePeer(contact)
		if err != nil {
			logger.Warn("seed not recorded", zap.Stringer("seed", contact), zap.Error(err))
			continue
		}
		logger.Info("seed recorded", zap.Stringer("seed", contact), zap.Stringer("result", result))
	}

	httpServer := api.NewHTTPServer(node, *httpPort, logger)
	fmt.Printf("HTTP API listening on port %d\n", *httpPort)
	if err := httpServer.Start(); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
