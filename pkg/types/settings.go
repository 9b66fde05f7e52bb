package types

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Settings represents the dashboard configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// PollIntervalSeconds is the telemetry polling cadence.
	PollIntervalSeconds int `json:"pollIntervalSeconds"`

	// Pause stops polling without discarding credentials.
	Pause bool `json:"pause"`

	// Credentials for the vendor cloud API.
	Credentials Credentials `json:"credentials"`

	// EncryptedCredentials replaces Credentials at rest when an encryption
	// key is configured.
	EncryptedCredentials []byte `json:"encryptedCredentials,omitempty"`
}

// Credentials for external systems
type Credentials struct {
	GivEnergy *GivEnergyCredentials `json:"givenergy,omitempty"`
}

// GivEnergyCredentials holds the vendor API bearer key.
type GivEnergyCredentials struct {
	APIKey string `json:"apiKey"`
}

// APIKey returns the configured vendor API key, if any.
func (s Settings) APIKey() string {
	if s.Credentials.GivEnergy == nil {
		return ""
	}
	return s.Credentials.GivEnergy.APIKey
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.PollIntervalSeconds == 0 {
				s.PollIntervalSeconds = 10
				migrated = true
			}
		case 2:
			// version 2: floor the poll interval, the vendor rate-limits
			// aggressive pollers
			if s.PollIntervalSeconds < 5 {
				s.PollIntervalSeconds = 5
				migrated = true
			}
		}
	}
	return s, migrated, nil
}
