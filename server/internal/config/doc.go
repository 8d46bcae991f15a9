// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort              port for ingest, REST API and WebSocket hub (default 8080)
//   - Auth.Mode             "apikey", "basic" or "none"
//   - Auth.KeyEnv           environment variable holding the expected API key
//   - Auth.Header           HTTP header name (default "x-api-key")
//   - Auth.PasswordHashEnv  environment variable holding a bcrypt hash for basic auth
//   - Snapshot.TTL          how long a target snapshot remains live (default 15m)
//   - Stream.Interval       WebSocket broadcast cadence (default 5s)
//   - Display.Timezone      IANA zone for rendered times (default UTC)
//   - Display.BannerTarget  target id behind the banner (default "mc")
//   - Storage.Backend       "sqlite" enables the snapshot archive
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
