// Package config loads, normalizes, and validates briefcast configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), derives the data-directory layout, reads TOML files, and honours
// environment fallbacks for secrets such as BRIEFCAST_API_KEY. The Config type
// centralizes every knob the pipeline and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
