package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nycHeader = "CRASH DATE,CRASH TIME,BOROUGH,ZIP CODE,LATITUDE,LONGITUDE,LOCATION,ON STREET NAME,CROSS STREET NAME,OFF STREET NAME," +
	"NUMBER OF PERSONS INJURED,NUMBER OF PERSONS KILLED,NUMBER OF PEDESTRIANS INJURED,NUMBER OF PEDESTRIANS KILLED," +
	"NUMBER OF CYCLIST INJURED,NUMBER OF CYCLIST KILLED,NUMBER OF MOTORIST INJURED,NUMBER OF MOTORIST KILLED," +
	"CONTRIBUTING FACTOR VEHICLE 1,CONTRIBUTING FACTOR VEHICLE 2,CONTRIBUTING FACTOR VEHICLE 3,CONTRIBUTING FACTOR VEHICLE 4,CONTRIBUTING FACTOR VEHICLE 5," +
	"COLLISION_ID,VEHICLE TYPE CODE 1,VEHICLE TYPE CODE 2,VEHICLE TYPE CODE 3,VEHICLE TYPE CODE 4,VEHICLE TYPE CODE 5\n" +
	"09/11/2021,2:39,,,,,,WHITESTONE EXPRESSWAY,20 AVENUE,,2,0,0,0,0,0,2,0,Aggressive Driving/Road Rage,Unspecified,,,,4455765,Sedan,Sedan,,,\n"

func TestNormalizeFieldName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"CRASH DATE":          "crash_date",
		"  Zip Code ":         "zip_code",
		"COLLISION_ID":        "collision_id",
		"Vehicle Type Code 1": "vehicle_type_code_1",
		"Číslo-dílu.x":        "cislo_dilu_x",
		"a  --  b":            "a_b",
		"%%%":                 "",
		"\uFEFFBOROUGH":       "borough",
		"__lead__":            "lead",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeFieldName(in), "NormalizeFieldName(%q)", in)
	}

	long := strings.Repeat("x", 100)
	assert.Len(t, NormalizeFieldName(long), maxIdentSize)
}

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	got := NormalizeHeader([]string{"Name", "name", "", "2nd", "NAME", "name_2"})
	assert.Equal(t, []string{"name", "name_2", "column_3", "c_2nd", "name_3", "name_2_2"}, got)

	for _, h := range got {
		assert.True(t, ValidIdent(h), "header %q must be a valid identifier", h)
	}
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	h, err := ReadHeader(strings.NewReader("\uFEFFa,\"b c\",d\n1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b c", "d"}, h)

	_, err = ReadHeader(strings.NewReader(""))
	require.Error(t, err)
}

func TestBind_NYCHeader(t *testing.T) {
	t.Parallel()

	header, err := ReadHeader(strings.NewReader(nycHeader))
	require.NoError(t, err)

	b, err := Bind(NYCCrashes(), header)
	require.NoError(t, err)

	assert.Len(t, b.Header, 29)
	assert.Equal(t, "crash_date", b.Header[0])
	assert.Equal(t, "location", b.Header[6])
	assert.Empty(t, b.Missing)

	src, ok := b.Source("vehicle_type_code1")
	require.True(t, ok)
	assert.Equal(t, "vehicle_type_code_1", src)

	src, ok = b.Source("collision_id")
	require.True(t, ok)
	assert.Equal(t, "collision_id", src)
}

func TestBind_MissingColumns(t *testing.T) {
	t.Parallel()

	ds := NYCCrashes()

	_, err := Bind(ds, []string{"CRASH DATE", "LATITUDE", "LONGITUDE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision_id")

	_, err = Bind(ds, []string{"COLLISION_ID", "LATITUDE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")

	b, err := Bind(ds, []string{"COLLISION_ID", "LATITUDE", "LONGITUDE", "BOROUGH"})
	require.NoError(t, err)
	assert.Contains(t, b.Missing, "crash_date")
	assert.NotContains(t, b.Missing, "borough")

	_, err = Bind(ds, nil)
	require.Error(t, err)
}

func TestBind_ExpectedHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	for _, ds := range All() {
		b, err := Bind(ds, ExpectedHeader(ds))
		require.NoError(t, err, ds.Name)
		assert.Empty(t, b.Missing, ds.Name)
		assert.Len(t, b.Sources, len(ds.Columns), ds.Name)
	}
}
