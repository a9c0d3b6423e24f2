package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsValidate(t *testing.T) {
	t.Parallel()

	for _, ds := range All() {
		require.NoError(t, ds.Validate(), ds.Name)
	}
	assert.Equal(t, []string{"nyc_crashes", "ca_crashes", "ca_injuredwitnesspassengers", "ca_parties"}, Names())
}

func TestConflictPolicies(t *testing.T) {
	t.Parallel()

	policies := map[string]ConflictPolicy{
		"nyc_crashes":                 Overwrite,
		"ca_crashes":                  Overwrite,
		"ca_injuredwitnesspassengers": Ignore,
		"ca_parties":                  Ignore,
	}
	for name, want := range policies {
		ds, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, ds.Conflict, name)
	}
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Lookup("crashes; DROP TABLE x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDataset))
}

func TestInLoadOrder(t *testing.T) {
	t.Parallel()

	got, err := InLoadOrder([]string{"ca_parties", "nyc_crashes", "ca_crashes", "ca_parties"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nyc_crashes", "ca_crashes", "ca_parties"}, got)

	_, err = InLoadOrder([]string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	base := func() Dataset {
		return Dataset{
			Name: "t", Table: "t", StagingTable: "t_staging", Key: "id",
			Columns: []Column{bigint("id"), double("lat"), double("lon"), text("name")},
		}
	}

	cases := map[string]func(*Dataset){
		"bad table ident":     func(d *Dataset) { d.Table = "T-1" },
		"staging equals dest": func(d *Dataset) { d.StagingTable = d.Table },
		"missing key":         func(d *Dataset) { d.Key = "nope" },
		"bool key":            func(d *Dataset) { d.Columns[0].Type = Boolean },
		"dup column":          func(d *Dataset) { d.Columns = append(d.Columns, text("name")) },
		"unknown type":        func(d *Dataset) { d.Columns[3].Type = "money" },
		"geometry on text": func(d *Dataset) {
			d.Geometry = &Geometry{Column: "geom", Latitude: "name", Longitude: "lon"}
		},
		"geometry collides": func(d *Dataset) {
			d.Geometry = &Geometry{Column: "name", Latitude: "lat", Longitude: "lon"}
		},
		"index unknown": func(d *Dataset) { d.Indexes = []string{"zzz"} },
	}
	for name, mutate := range cases {
		d := base()
		mutate(&d)
		assert.Error(t, d.Validate(), name)
	}

	ok := base()
	ok.Geometry = &Geometry{Column: "geom", Latitude: "lat", Longitude: "lon"}
	assert.NoError(t, ok.Validate())
}

func TestTableDef(t *testing.T) {
	t.Parallel()

	td := NYCCrashes().TableDef()
	assert.True(t, td.IfNotExists)
	assert.Equal(t, "nyc_crashes", td.FQN)

	last := td.Columns[len(td.Columns)-1]
	assert.Equal(t, "location", last.Name)
	assert.Equal(t, "geometry(Point, 4326)", last.SQLType)

	first := td.Columns[0]
	assert.Equal(t, "collision_id", first.Name)
	assert.True(t, first.PrimaryKey)

	idx := CAParties().IndexDefs()
	require.Len(t, idx, 1)
	assert.Equal(t, "ca_parties_collision_id_idx", idx[0].Name)
}
