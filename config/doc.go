// Package config provides environment-driven configuration for the three
// services: listen addresses, leaf-service base URLs, PostgreSQL connections
// with pool tuning, and the OpenTelemetry provider setup.
package config
