// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it runs the init functions of
// each backend, which register their factories. After
//
//	import _ "crashloader/internal/storage/all"
//
// the following kinds are available to storage.New:
//
//   - "rdsdata"  (Aurora RDS Data API plus the aws_s3 extension)
//   - "postgres" (direct pgx connection, COPY FROM STDIN)
package all

import (
	_ "crashloader/internal/storage/postgres"
	_ "crashloader/internal/storage/rdsdata"
)
