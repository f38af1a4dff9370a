package internal

import (
	// Blank imports register the database drivers used by the sql publisher
	// and the riverqueue publisher.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
