// Package manifest fetches and verifies the signed version manifest.
//
// The remote endpoint serves a compact JWS signed with EdDSA (ed25519).
// Verification is all-or-nothing: a *Manifest value only exists once its
// signature and structure have been checked against the configured key.
package manifest
