package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/hramos/chatledger/internal/engine"
	"github.com/hramos/chatledger/internal/session"
)

// configDir is where the ledger, session config and log artifact live unless
// overridden by flags or config.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "chatledger")
}

func ledgerPath() string {
	if p := viper.GetString("ledger.path"); p != "" {
		return session.ExpandPath(p)
	}
	return filepath.Join(configDir(), "ledger.db")
}

func sessionPath() string {
	if p := viper.GetString("session.path"); p != "" {
		return session.ExpandPath(p)
	}
	return filepath.Join(configDir(), "session.json")
}

func logPath() string {
	if p := viper.GetString("logging.file"); p != "" {
		return session.ExpandPath(p)
	}
	return filepath.Join(configDir(), "chatledger.log")
}

// getEngine builds the engine from the resolved paths.
func getEngine() (*engine.Engine, error) {
	if err := os.MkdirAll(configDir(), 0750); err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		LedgerPath: ledgerPath(),
		ConfigPath: sessionPath(),
		LogPath:    logPath(),
	})
}
