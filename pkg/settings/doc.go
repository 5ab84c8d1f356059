// Package settings loads application settings from layered sources and
// keeps them current.
//
// Sources are applied in order and merged key by key, later sources winning:
//
//	p, err := settings.New([]settings.Source{
//	    settings.File("config/app.toml"),
//	    settings.OptionalFile("config/app.local.yaml"),
//	    settings.Env("MYAPP_"),
//	})
//
//	var db struct {
//	    DSN     string        `mapstructure:"dsn"`
//	    Timeout time.Duration `mapstructure:"timeout"`
//	}
//	err = p.Decode("database", &db)
//
// Keys are case-insensitive. Environment variables map to nested keys by
// splitting on a double underscore: MYAPP_DATABASE__DSN sets database.dsn.
//
// Watch reloads file sources when they change on disk and notifies
// OnChange callbacks.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package settings
