// Package config loads process configuration from the environment. Every
// field has a default usable for local development; Validate catches the
// combinations that cannot work before anything is wired.
package config
