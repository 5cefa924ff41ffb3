package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pipetrace/internal/config"
	"pipetrace/internal/dataset"
	"pipetrace/internal/graphcache"
	"pipetrace/internal/graphcache/blob"
	"pipetrace/internal/network"
	"pipetrace/internal/pointer"
	"pipetrace/internal/service"
)

// printSink writes diagnostics straight to stderr, the right surface for a
// one-shot command.
type printSink struct{}

func (printSink) Info(msg string) { fmt.Fprintln(os.Stderr, msg) }
func (printSink) Warn(msg string) { fmt.Fprintln(os.Stderr, "warning: "+msg) }
func (printSink) Error(msg string, _ bool) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
}

// newService builds the same cache stack the server uses. Cobra owns the
// flags here, so only the environment side of the configuration applies.
func newService() (*service.Service, error) {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	var registry pointer.Registry
	switch {
	case cfg.Pointer.DSN != "":
		registry, err = pointer.NewPostgres(cfg.Pointer.DSN)
	case cfg.Pointer.File != "":
		registry, err = pointer.NewFile(cfg.Pointer.File)
	default:
		registry, err = pointer.NewFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("init pointer registry: %w", err)
	}

	var local blob.Store
	if cfg.Cache.LocalDir != "" {
		ls, err := blob.NewLocalStore(blob.LocalConfig{
			Dir:        cfg.Cache.LocalDir,
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init local cache: %w", err)
		}
		local = ls
	}
	var remote blob.Store
	if cfg.Remote.Enabled {
		rs, err := blob.NewRemoteStore(blob.RemoteConfig{
			Endpoint:  cfg.Remote.Endpoint,
			Region:    cfg.Remote.Region,
			AccessKey: cfg.Remote.AccessKey,
			SecretKey: cfg.Remote.SecretKey,
			Bucket:    cfg.Remote.Bucket,
			UseSSL:    cfg.Remote.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote cache: %w", err)
		}
		remote = rs
	}

	locator, err := graphcache.NewLocator(registry, blob.NewDiskStore(), local, remote)
	if err != nil {
		return nil, fmt.Errorf("init cache locator: %w", err)
	}
	return service.New(service.Options{Locator: locator, Sink: printSink{}})
}

// datasetService loads the manifest at path into a fresh service.
func datasetService(path string) (*service.Service, *dataset.Manifest, error) {
	svc, err := newService()
	if err != nil {
		return nil, nil, err
	}
	m, err := dataset.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.AddManifest(m); err != nil {
		return nil, nil, err
	}
	return svc, m, nil
}

func resolveDirection(m *dataset.Manifest, flagValue string) (network.Direction, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return network.ParseDirection(v)
	}
	if m.Direction != "" {
		return network.ParseDirection(m.Direction)
	}
	return "", fmt.Errorf("dataset %q declares no default direction; pass --direction", m.Name)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("Failed to encode output", err)
	}
	fmt.Println(string(out))
}
