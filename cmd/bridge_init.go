package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/kommo-bridge/internal/defs"
	"github.com/sells-group/kommo-bridge/internal/dict"
	"github.com/sells-group/kommo-bridge/internal/pipeline"
	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// bridgeEnv holds the initialized dictionaries, Kommo client and pipeline
// shared by the serve and translate commands.
type bridgeEnv struct {
	Dicts    *dict.Registry
	Tokens   kommo.TokenSource
	Client   kommo.Client
	Pipeline *pipeline.Pipeline
}

// initBridge loads the dictionaries and wires the token source, API client,
// definition caches and pipeline from config.
func initBridge() (*bridgeEnv, error) {
	dicts, err := dict.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load dictionaries")
	}

	tokens := kommo.NewTokenSource(cfg.Kommo.APIToken, kommo.OAuthConfig{
		ClientID:     cfg.Kommo.ClientID,
		ClientSecret: cfg.Kommo.ClientSecret,
		RefreshToken: cfg.Kommo.RefreshToken,
		RedirectURI:  cfg.Kommo.RedirectURI,
	})

	client := kommo.NewClient(tokens, kommo.WithDomain(cfg.Kommo.Domain))

	pipe := pipeline.New(
		dicts,
		client,
		defs.NewCache(client, defs.DefaultTTL),
		defs.NewLossReasonCache(client, defs.DefaultTTL),
		cfg.Kommo.Subdomain,
		cfg.Mapping.CloseDays,
		cfg.Mapping.TimeZone,
	)

	return &bridgeEnv{
		Dicts:    dicts,
		Tokens:   tokens,
		Client:   client,
		Pipeline: pipe,
	}, nil
}
