package rdsdata

import (
	"context"
	"errors"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashloader/internal/objectstore"
	"crashloader/internal/pgsql"
	"crashloader/internal/storage"
)

type fakeAPI struct {
	inputs []*rdsdata.ExecuteStatementInput
	out    *rdsdata.ExecuteStatementOutput
	err    error
}

func (f *fakeAPI) ExecuteStatement(_ context.Context, in *rdsdata.ExecuteStatementInput, _ ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	if f.out == nil {
		return &rdsdata.ExecuteStatementOutput{}, nil
	}
	return f.out, nil
}

func newTestBackend(t *testing.T, api *fakeAPI) *Backend {
	t.Helper()
	b, err := New(api, Config{ClusterARN: "arn:cluster", SecretARN: "arn:secret"}, nil)
	require.NoError(t, err)
	return b
}

func TestExec_ParamsAndResult(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{out: &rdsdata.ExecuteStatementOutput{
		NumberOfRecordsUpdated: 3,
		Records: [][]types.Field{{
			&types.FieldMemberLongValue{Value: 1},
			&types.FieldMemberStringValue{Value: "x"},
			&types.FieldMemberIsNull{Value: true},
		}},
	}}
	b := newTestBackend(t, api)

	res, err := b.Exec(context.Background(), "postgres", pgsql.DatabaseExistsSQL,
		storage.String(pgsql.ParamDatabaseName, "nycrashes"),
		storage.Param{Name: "n", Value: int64(7)},
		storage.Param{Name: "f", Value: 1.5},
		storage.Param{Name: "b", Value: true},
		storage.Param{Name: "z", Value: nil},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.RowsAffected)
	assert.Equal(t, [][]any{{int64(1), "x", nil}}, res.Rows)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "arn:cluster", aws.ToString(in.ResourceArn))
	assert.Equal(t, "arn:secret", aws.ToString(in.SecretArn))
	assert.Equal(t, "postgres", aws.ToString(in.Database))
	require.Len(t, in.Parameters, 5)
	assert.Equal(t, "database_name", aws.ToString(in.Parameters[0].Name))
	assert.Equal(t, &types.FieldMemberStringValue{Value: "nycrashes"}, in.Parameters[0].Value)
	assert.Equal(t, &types.FieldMemberLongValue{Value: 7}, in.Parameters[1].Value)
	assert.Equal(t, &types.FieldMemberIsNull{Value: true}, in.Parameters[4].Value)
}

func TestExec_UnsupportedParam(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, &fakeAPI{})
	_, err := b.Exec(context.Background(), "db", "SELECT :x", storage.Param{Name: "x", Value: struct{}{}})
	require.Error(t, err)
}

func TestExec_DatabaseExists(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{err: &types.BadRequestException{Message: aws.String(`ERROR: database "nycrashes" already exists; SQLState: 42P04`)}}
	b := newTestBackend(t, api)

	_, err := b.Exec(context.Background(), "postgres", `CREATE DATABASE "nycrashes";`)
	assert.ErrorIs(t, err, storage.ErrDatabaseExists)

	_, err = b.Exec(context.Background(), "nycrashes", `CREATE TABLE "t" ("a" TEXT);`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrDatabaseExists))
}

func TestImport(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{out: &rdsdata.ExecuteStatementOutput{
		Records: [][]types.Field{{&types.FieldMemberStringValue{
			Value: `2091235 rows imported into relation "nyc_crashes_staging" from file crashes.csv of 438110265 bytes`,
		}}},
	}}
	b := newTestBackend(t, api)

	n, err := b.Import(context.Background(), "nycrashes", storage.ImportRequest{
		Table:   "nyc_crashes_staging",
		Columns: []string{"crash_date", "collision_id"},
		Source:  objectstore.Location{Bucket: "project", Key: "crashes.csv"},
		Region:  "us-east-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2091235, n)

	in := api.inputs[0]
	assert.Equal(t, pgsql.ImportFromS3SQL, aws.ToString(in.Sql))
	got := map[string]string{}
	for _, p := range in.Parameters {
		got[aws.ToString(p.Name)] = p.Value.(*types.FieldMemberStringValue).Value
	}
	assert.Equal(t, map[string]string{
		"table_name":  "nyc_crashes_staging",
		"column_list": `"crash_date","collision_id"`,
		"bucket_name": "project",
		"object_key":  "crashes.csv",
		"aws_region":  "us-east-1",
	}, got)
}

func TestImport_Failure(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t, &fakeAPI{err: errors.New("access denied")})
	_, err := b.Import(context.Background(), "db", storage.ImportRequest{Table: "s", Columns: []string{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestParseImportResult(t *testing.T) {
	t.Parallel()

	n, err := ParseImportResult("1 row imported into relation \"s\"")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = ParseImportResult("boom")
	assert.Error(t, err)
}

func TestNew_RequiresARNs(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeAPI{}, Config{ClusterARN: "x"}, nil)
	assert.Error(t, err)
}

func TestFactoryRegistered(t *testing.T) {
	assert.Contains(t, storage.ListKinds(), "rdsdata")

	orig := newClient
	t.Cleanup(func() { newClient = orig })
	api := &fakeAPI{}
	newClient = func(storage.Config) dataAPI { return api }

	b, err := storage.New(context.Background(), storage.Config{Kind: "rdsdata", ClusterARN: "c", SecretARN: "s"})
	require.NoError(t, err)
	_, err = b.Exec(context.Background(), "postgres", "SELECT 1")
	require.NoError(t, err)
	assert.Len(t, api.inputs, 1)
}
