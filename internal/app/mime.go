package app

import (
	"log/slog"
	"mime"
)

// Minimal container images often ship without /etc/mime.types, and the
// static handler would then serve stylesheets as text/plain. Register
// what the admin UI serves up front.
func init() {
	for ext, typ := range map[string]string{
		".css":   "text/css; charset=utf-8",
		".svg":   "image/svg+xml",
		".woff2": "font/woff2",
	} {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
