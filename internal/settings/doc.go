// Package settings resolves the site settings handed to the host platform's
// configuration loader. Resolution reads the APP_ENV and FORGE_ENV signals,
// selects a logging profile, builds the ordered list of service descriptor
// files and, when a local override file exists, emits a directive to load it.
// The overlay reader in this package is the collaborator that acts on that
// directive.
package settings
