// Package config loads and watches the agent configuration file.
//
// Top-level types:
//   - Config{Agent}: the parsed YAML tree
//   - AgentConfig: server_endpoint, ship_interval, buffer_size, server_auth,
//     feeds, cert_check_interval, policy, targets
//   - FeedsConfig: history/latest URLs, refresh periods, dedupe windows,
//     timeout, auth, tls
//   - PolicyConfig: INVALID-reading policy for the strip and the live status
//   - Target: id, title, subtitle, kind (web|game)
//   - AuthConfig: mode (apikey|bearer|basic|none), header, key_env,
//     token_env, username, password_env; Key(), Token() and Password()
//     resolve secrets from environment variables
//
// Load(path) reads the YAML file, applies defaults (5m history refresh, 60s
// latest refresh, 30s/10s dedupe windows, the three stock targets), then
// validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and calls
// onChange with each successfully reloaded Config.
package config
