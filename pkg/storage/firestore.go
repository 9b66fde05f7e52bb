package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Settings and presets live under a per-site document so a
// single deployment can later host more than one home.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	siteID    string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	siteID := lflag.String("site-id", "home", "Site document ID to store data under")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.siteID = *siteID

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("sites").Doc(f.siteID).Collection(name)
}

// GetSettings retrieves the dynamic configuration from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.collection("config").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = f.collection("config").Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ListPresets returns every stored preset.
func (f *FirestoreProvider) ListPresets(ctx context.Context) ([]types.NamedPreset, error) {
	iter := f.collection("presets").Documents(ctx)
	defer iter.Stop()

	var presets []types.NamedPreset
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating presets: %w", err)
		}

		preset, err := presetFromDoc(doc)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed preset doc",
				slog.String("presetID", doc.Ref.ID), slog.Any("err", err))
			continue
		}
		presets = append(presets, preset)
	}
	return presets, nil
}

// GetPreset retrieves a single preset by ID.
func (f *FirestoreProvider) GetPreset(ctx context.Context, id string) (types.NamedPreset, error) {
	doc, err := f.collection("presets").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.NamedPreset{}, ErrPresetNotFound
		}
		return types.NamedPreset{}, fmt.Errorf("failed to fetch preset doc: %w", err)
	}
	return presetFromDoc(doc)
}

// UpsertPreset adds or updates a preset. The preset's ID is the document ID.
func (f *FirestoreProvider) UpsertPreset(ctx context.Context, preset types.NamedPreset) error {
	jsonBytes, err := json.Marshal(preset)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	_, err = f.collection("presets").Doc(preset.ID).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	return nil
}

// DeletePreset removes a preset by ID.
func (f *FirestoreProvider) DeletePreset(ctx context.Context, id string) error {
	// confirm it exists so callers can distinguish a no-op delete
	if _, err := f.GetPreset(ctx, id); err != nil {
		return err
	}
	if _, err := f.collection("presets").Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	return nil
}

func presetFromDoc(doc *firestore.DocumentSnapshot) (types.NamedPreset, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		return types.NamedPreset{}, fmt.Errorf("preset document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return types.NamedPreset{}, fmt.Errorf("preset document %s 'json' field is not string", doc.Ref.ID)
	}
	var p types.NamedPreset
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		return types.NamedPreset{}, fmt.Errorf("failed to unmarshal preset (id=%s): %w", doc.Ref.ID, err)
	}
	return p, nil
}

var _ Database = (*FirestoreProvider)(nil)
