// Package rdsdata implements storage.Backend on the Aurora RDS Data API. SQL
// is sent as text with named :params; the bulk import is delegated to the
// cluster's aws_s3 extension so CSV bytes never pass through the caller.
package rdsdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/sirupsen/logrus"

	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

// dataAPI is the subset of *rdsdata.Client used here.
type dataAPI interface {
	ExecuteStatement(ctx context.Context, in *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
}

// Config identifies the cluster and the secret holding its credentials.
type Config struct {
	ClusterARN string
	SecretARN  string
}

// Backend executes statements through the Data API.
type Backend struct {
	api dataAPI
	cfg Config
	log logrus.FieldLogger
}

var _ storage.Backend = (*Backend)(nil)

// New returns a Backend using api.
func New(api dataAPI, cfg Config, log logrus.FieldLogger) (*Backend, error) {
	if cfg.ClusterARN == "" || cfg.SecretARN == "" {
		return nil, errors.New("rdsdata: cluster ARN and secret ARN are required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backend{api: api, cfg: cfg, log: log}, nil
}

// Exec implements storage.Executor.
func (b *Backend) Exec(ctx context.Context, database, sql string, params ...storage.Param) (storage.Result, error) {
	in := &rdsdata.ExecuteStatementInput{
		ResourceArn: aws.String(b.cfg.ClusterARN),
		SecretArn:   aws.String(b.cfg.SecretARN),
		Database:    aws.String(database),
		Sql:         aws.String(sql),
	}
	if len(params) > 0 {
		ps, err := toSQLParameters(params)
		if err != nil {
			return storage.Result{}, err
		}
		in.Parameters = ps
	}

	b.log.WithField("database", database).Debugf("executing SQL: %s", sql)
	out, err := b.api.ExecuteStatement(ctx, in)
	if err != nil {
		if isCreateDatabase(sql) && strings.Contains(err.Error(), "already exists") {
			return storage.Result{}, fmt.Errorf("%w: %w", storage.ErrDatabaseExists, err)
		}
		return storage.Result{}, fmt.Errorf("rdsdata: execute on %s: %w", database, err)
	}

	res := storage.Result{RowsAffected: out.NumberOfRecordsUpdated}
	for _, rec := range out.Records {
		row := make([]any, len(rec))
		for i, f := range rec {
			row[i] = fromField(f)
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Import implements storage.Importer with aws_s3.table_import_from_s3.
func (b *Backend) Import(ctx context.Context, database string, req storage.ImportRequest) (int64, error) {
	res, err := b.Exec(ctx, database, pgsql.ImportFromS3SQL,
		storage.String(pgsql.ParamTableName, req.Table),
		storage.String(pgsql.ParamColumnList, pgsql.ColumnList(req.Columns)),
		storage.String(pgsql.ParamBucketName, req.Source.Bucket),
		storage.String(pgsql.ParamObjectKey, req.Source.Key),
		storage.String(pgsql.ParamAWSRegion, req.Region),
	)
	if err != nil {
		return 0, fmt.Errorf("import %s into %s: %w", req.Source, req.Table, err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, fmt.Errorf("import %s into %s: empty result", req.Source, req.Table)
	}
	msg, _ := res.Rows[0][0].(string)
	n, err := ParseImportResult(msg)
	if err != nil {
		return 0, fmt.Errorf("import %s into %s: %w", req.Source, req.Table, err)
	}
	return n, nil
}

// Close implements storage.Backend; the Data API client holds no sessions.
func (b *Backend) Close() {}

var importResultRE = regexp.MustCompile(`^\s*(\d+) rows? imported`)

// ParseImportResult extracts the row count from the text aws_s3 returns,
// e.g. "2091235 rows imported into relation "x" from file y of 412 bytes".
func ParseImportResult(s string) (int64, error) {
	m := importResultRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognized import result %q", s)
	}
	return strconv.ParseInt(m[1], 10, 64)
}

func isCreateDatabase(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "CREATE DATABASE")
}

func toSQLParameters(params []storage.Param) ([]types.SqlParameter, error) {
	out := make([]types.SqlParameter, 0, len(params))
	for _, p := range params {
		var f types.Field
		switch v := p.Value.(type) {
		case nil:
			f = &types.FieldMemberIsNull{Value: true}
		case string:
			f = &types.FieldMemberStringValue{Value: v}
		case int:
			f = &types.FieldMemberLongValue{Value: int64(v)}
		case int64:
			f = &types.FieldMemberLongValue{Value: v}
		case float64:
			f = &types.FieldMemberDoubleValue{Value: v}
		case bool:
			f = &types.FieldMemberBooleanValue{Value: v}
		default:
			return nil, fmt.Errorf("rdsdata: parameter %s: unsupported type %T", p.Name, p.Value)
		}
		out = append(out, types.SqlParameter{Name: aws.String(p.Name), Value: f})
	}
	return out, nil
}

func fromField(f types.Field) any {
	switch v := f.(type) {
	case *types.FieldMemberStringValue:
		return v.Value
	case *types.FieldMemberLongValue:
		return v.Value
	case *types.FieldMemberDoubleValue:
		return v.Value
	case *types.FieldMemberBooleanValue:
		return v.Value
	case *types.FieldMemberBlobValue:
		return v.Value
	default:
		return nil
	}
}
