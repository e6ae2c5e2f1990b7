// Package appfs embeds assets needed at runtime so the seeder binary ships
// self-contained.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
