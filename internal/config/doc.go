// Package config loads, normalizes, and validates vocalize configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VOCALIZE_API_URL and VOCALIZE_API_KEY. The Config type centralizes every
// knob the CLI needs, so the API endpoint, local state database, recordings
// directory, and cache window are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
