package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ghyeongl/importhistory/history"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "importhistory",
		Short:         "Recently imported, created and moved assets",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String("backend", "", "preference backend: sqlite, file, redis or memory")
	pf.String("db-path", "", "sqlite preference database")
	pf.String("prefs-file", "", "json preference file for the file backend")
	pf.String("redis-addr", "", "redis address for the redis backend")
	pf.String("pref-key", "", "preference key the history is stored under")
	pf.String("log-dir", "", "directory for rotating log files")

	root.AddCommand(
		newServeCmd(),
		newListCmd(),
		newClearCmd(),
		newRemoveCmd(),
		newConfigCmd(),
	)
	return root
}

// resolveConfig builds the effective configuration for cmd.
func resolveConfig(cmd *cobra.Command) (appConfig, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return appConfig{}, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return appConfig{}, err
	}
	return loadConfig(v, configFile)
}

// session is one opened service and the backend behind it.
type session struct {
	cfg    appConfig
	svc    *history.Service
	closer io.Closer
}

// openSession opens the configured service. Console INFO logging goes to
// infoOut so commands that print results keep stdout clean.
func openSession(cmd *cobra.Command, infoOut io.Writer) (*session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	history.InitLogger(cfg.LogDir, infoOut)

	scfg, err := serviceConfig(cfg)
	if err != nil {
		return nil, err
	}
	prefs, closer, err := openPrefs(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return &session{cfg: cfg, svc: history.NewService(scfg, prefs), closer: closer}, nil
}

func (s *session) Close() error {
	svcErr := s.svc.Close()
	if err := s.closer.Close(); err != nil {
		return err
	}
	return svcErr
}
