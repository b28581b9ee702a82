// Package app は設定から解析パイプラインの依存関係を組み立てる。
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"edb-forensics/config"
	"edb-forensics/internal/extractor"
	"edb-forensics/internal/identity"
	"edb-forensics/internal/infra"
	"edb-forensics/internal/locator"
	"edb-forensics/internal/progress"
	"edb-forensics/internal/repository"
	"edb-forensics/internal/search"
	"edb-forensics/internal/usecase"
)

// App はコマンドとサーバーが共有する組み立て済みの依存関係。
type App struct {
	Service   *usecase.DecryptService
	Progress  *progress.Manager
	LoginList *locator.LoginListReader

	closers []func() error
}

// New は設定から依存関係を組み立てる。
// CaseDBPath が設定されていればケースストアを開き、鍵候補の先頭に加える。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Progress:  progress.NewManager(),
		LoginList: locator.NewLoginListReader(cfg.LoginListPath),
	}

	open := func(path string) (*gorm.DB, error) {
		return infra.NewDB(path, cfg.OtelEnabled)
	}
	ext := extractor.NewMessageExtractor(open, cfg.MessageLimit, "")

	var providers []search.CandidateProvider
	var store *repository.RecoveredKeyRepository
	var sealer infra.KeySealer
	if cfg.CaseDBPath != "" {
		db, err := infra.NewDB(cfg.CaseDBPath, cfg.OtelEnabled)
		if err != nil {
			return nil, fmt.Errorf("opening case store: %w", err)
		}
		a.closers = append(a.closers, func() error { return infra.CloseDB(db) })

		store = repository.NewRecoveredKeyRepository(db)
		if err := store.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating case store: %w", err)
		}

		sealer, err = infra.NewKeySealer(ctx, cfg.KMSKeyName)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing key sealer: %w", err)
		}
		a.closers = append(a.closers, sealer.Close)

		providers = append(providers, search.NewCaseStoreProvider(store, sealer))
		slog.InfoContext(ctx, "case store enabled",
			"path", cfg.CaseDBPath,
			"kms", cfg.KMSKeyName != "",
		)
	}
	providers = append(providers, search.RegistryPatternProbe{}, search.MemoryPatternProbe{})

	a.Service = usecase.NewDecryptService(
		identityProvider(cfg),
		locator.NewFileLocator(cfg.UsersDir),
		ext,
		search.NewSearcher(providers...),
		a.Progress,
		cfg.AutoDiscover,
	)
	if store != nil {
		a.Service.WithCaseStore(store, sealer)
	}
	return a, nil
}

// Close は開いた資源を逆順に閉じる。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func identityProvider(cfg *config.Config) identity.Provider {
	if cfg.IdentityFixture != "" {
		return identity.NewFixtureProvider(cfg.IdentityFixture)
	}
	return identity.NewOSProvider()
}
