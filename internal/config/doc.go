// Package config loads, normalizes, and validates lingocast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LINGOCAST_LLM_API_KEY and LINGOCAST_ENV. The Config type centralizes every
// knob the pipeline and CLI need so caption sources, inference settings, and
// cache sizing are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
