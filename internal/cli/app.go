package cli

import (
	"github.com/rileyhilliard/shipr/internal/config"
	"github.com/rileyhilliard/shipr/internal/errors"
	"github.com/rileyhilliard/shipr/internal/keystore"
	"github.com/rileyhilliard/shipr/internal/logger"
	"github.com/rileyhilliard/shipr/internal/remote"
	"github.com/rileyhilliard/shipr/internal/source"
)

// app holds the components built from one config.
type app struct {
	cfg      *config.Config
	cfgPath  string
	keys     *keystore.Store
	remote   remote.Remote
	ghBinary string
	source   *source.GitHub
	log      logger.Logger
}

// loadApp loads and validates the config selected by --config.
func loadApp() (*app, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return newApp(cfg, path, logger.Default())
}

// newApp wires the components for cfg. The gh binary is resolved here, once.
func newApp(cfg *config.Config, path string, log logger.Logger) (*app, error) {
	var gen keystore.Generator
	switch cfg.Keys.Generator {
	case config.GeneratorNative:
		gen = keystore.NativeGenerator{}
	default:
		gen = keystore.KeygenGenerator{Binary: cfg.Tools.SSHKeygen}
	}
	keys := keystore.New(cfg.KeysDir, gen, log)

	rem, err := remote.FromConfig(cfg, keys, log)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't set up the SSH transport",
			"Check ssh.transport and ssh.extra_args in your config")
	}

	gh := source.ResolveBinary(cfg.Tools.GH)
	return &app{
		cfg:      cfg,
		cfgPath:  path,
		keys:     keys,
		remote:   rem,
		ghBinary: gh,
		source:   source.NewGitHub(gh, log),
		log:      log,
	}, nil
}
