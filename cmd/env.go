package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/config"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/fetcher"
	"github.com/sells-group/microclimate-qa/internal/qa"
	"github.com/sells-group/microclimate-qa/internal/store"
)

// readOptions converts the input section into table decoding options.
func readOptions(in config.InputConfig) clf.Options {
	return clf.Options{
		TimeColumn: in.TimeColumn,
		Table: fetcher.TableOptions{
			Charset: in.Encoding,
			CSV:     fetcher.CSVOptions{Delimiter: in.Delim(), TrimSpace: true},
		},
	}
}

func initPipeline() (*qa.Pipeline, error) {
	settings, err := qa.SettingsFromConfig(cfg.QA)
	if err != nil {
		return nil, err
	}
	return qa.New(settings), nil
}

func initDetector() (*deploy.Detector, error) {
	settings, err := deploy.SettingsFromConfig(cfg.Deploy)
	if err != nil {
		return nil, err
	}
	return deploy.NewDetector(settings)
}

// initStore opens the configured run store. It returns nil when the driver
// is "none".
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("run store is disabled (store.driver=none)")
	}
	return st, nil
}
