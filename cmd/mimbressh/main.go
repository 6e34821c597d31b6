// Package main implements the SSH server that serves the Artesanía en
// Mimbre terminal storefront.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/pbravo/mimbre-terminal/internal/auth"
	"github.com/pbravo/mimbre-terminal/internal/cache"
	"github.com/pbravo/mimbre-terminal/internal/cart"
	"github.com/pbravo/mimbre-terminal/internal/catalog"
	"github.com/pbravo/mimbre-terminal/internal/checkout"
	"github.com/pbravo/mimbre-terminal/internal/config"
	"github.com/pbravo/mimbre-terminal/internal/shop"
	"github.com/pbravo/mimbre-terminal/internal/tui"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mimbressh",
	})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	if err := ensureHostKey(logger, cfg.SSHHostKeyPath); err != nil {
		logger.Fatal("ensuring host key", "err", err)
	}

	var allowlist []gossh.PublicKey
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		allowlist, err = auth.LoadAllowlist(cfg.AllowlistPath)
		if err != nil {
			if errors.Is(err, auth.ErrAllowlistNotFound) {
				logger.Info("creating empty allowlist", "path", cfg.AllowlistPath)
				if err := auth.CreateEmptyAllowlist(cfg.AllowlistPath); err != nil {
					logger.Fatal("creating allowlist", "err", err)
				}
				logger.Info("add your SSH public key to the allowlist and restart")
				os.Exit(1)
			}
			logger.Fatal("loading allowlist", "err", err)
		}
		if len(allowlist) == 0 {
			logger.Warn("allowlist is empty, no connections will be accepted", "path", cfg.AllowlistPath)
		}
		logger.Info("loaded allowlist", "keys", len(allowlist))
	} else {
		logger.Warn("running in PUBLIC mode, anyone can connect")
	}

	shopClient := shop.NewClient(cfg.ShopBaseURL)
	whatsapp := checkout.NewWhatsApp(cfg.WhatsAppNumber)

	// One catalog cache for the whole server; sessions share it so the
	// shop API is hit once per TTL window, not once per connection.
	catalogCache := cache.New[string, []shop.Product](cfg.CacheTTL)
	go func() {
		ticker := time.NewTicker(cfg.CacheTTL)
		defer ticker.Stop()
		for range ticker.C {
			catalogCache.Prune()
		}
	}()

	opts := []ssh.Option{
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				index := catalog.NewIndex(shopClient)
				cartStore := newSessionCart(logger, cfg, index, s)
				cartStore.Subscribe(func() {
					logger.Debug("cart updated", "user", s.User(), "units", cartStore.Count())
				})
				model := tui.NewModel(shopClient, index, cartStore, whatsapp, catalogCache)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
		),
	}

	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return auth.IsKeyAllowed(key, allowlist)
		}))
	} else {
		// Public mode - accept any public key
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return true
		}))
	}

	// Always disable password auth
	opts = append(opts, wish.WithPasswordAuth(func(ctx ssh.Context, password string) bool {
		return false
	}))

	server, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("creating SSH server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting SSH server",
		"addr", cfg.SSHAddr,
		"shop", cfg.ShopBaseURL,
		"auth", cfg.SSHAuthMode)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		logger.Fatal("shutdown error", "err", err)
	}
}

// newSessionCart builds the cart store for one SSH session. Sessions that
// authenticated with a public key get a file-backed cart keyed by the key's
// fingerprint, so the same key sees the same cart on its next visit.
// Anonymous sessions fall back to a cart that lives only as long as the
// connection.
func newSessionCart(logger *log.Logger, cfg *config.Config, index *catalog.Index, s ssh.Session) *cart.Store {
	var storage cart.Storage = cart.NewMemoryStorage()
	if fp := auth.Fingerprint(s.PublicKey()); fp != "" {
		storage = cart.NewFileStorage(filepath.Join(cfg.CartDir, fp+".json"))
	}
	return cart.NewStore(index, storage, cart.WithLogger(logger))
}

// ensureHostKey generates an ED25519 host key if it doesn't exist.
func ensureHostKey(logger *log.Logger, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // Key exists
	}

	logger.Info("generating new ED25519 host key", "path", path)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	sshPrivKey, err := gossh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(sshPrivKey), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	sshPubKey, err := gossh.NewPublicKey(pubKey)
	if err != nil {
		return fmt.Errorf("creating public key: %w", err)
	}

	pubKeyBytes := gossh.MarshalAuthorizedKey(sshPubKey)
	if err := os.WriteFile(path+".pub", pubKeyBytes, 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}
