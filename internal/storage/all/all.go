// Package all registers every storage backend. Blank-import it from binaries
// so config selects backends at runtime without per-backend imports.
package all

import (
	_ "tabload/internal/storage/mssql"
	_ "tabload/internal/storage/postgres"
	_ "tabload/internal/storage/sqlite"
)
