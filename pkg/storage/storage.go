package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// ErrPresetNotFound is returned when a preset does not exist.
var ErrPresetNotFound = errors.New("preset not found")

// Database defines the interface for persisting settings and presets.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Presets
	ListPresets(ctx context.Context) ([]types.NamedPreset, error)
	GetPreset(ctx context.Context, id string) (types.NamedPreset, error)
	UpsertPreset(ctx context.Context, preset types.NamedPreset) error
	DeletePreset(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
