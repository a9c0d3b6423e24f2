package pgsql

import (
	"fmt"

	"crashloader/internal/ddl"
)

// Named parameters of ImportFromS3SQL.
const (
	ParamTableName  = "table_name"
	ParamColumnList = "column_list"
	ParamBucketName = "bucket_name"
	ParamObjectKey  = "object_key"
	ParamAWSRegion  = "aws_region"
)

// ImportFromS3SQL imports a headed CSV object into a table through the
// aws_s3 extension. The column list keeps the ordinal column out of the COPY
// so it is filled by its sequence in file order.
const ImportFromS3SQL = `SELECT aws_s3.table_import_from_s3(
  :table_name,
  :column_list,
  '(format csv, header true)',
  :bucket_name,
  :object_key,
  :aws_region
);`

// CopyFromSQL renders COPY ... FROM STDIN for a headed CSV stream.
func CopyFromSQL(table string, header []string) string {
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
		ddl.QuoteFQN(table), ColumnList(header))
}
