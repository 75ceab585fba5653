// Package history crawls the numbered photo-history collections some sites
// publish and keeps them in a per-site JSON snapshot.
package history
