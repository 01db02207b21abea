// Package config loads, normalizes, and validates classaudio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a best-effort .env file, and honours
// environment overrides such as CLASSAUDIO_BACKEND_URL. The Config type
// centralizes the backend endpoints, session timing, cache store selection and
// logging knobs so every command sees the same values.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
