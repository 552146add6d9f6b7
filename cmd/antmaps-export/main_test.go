package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antmaps-api/internal/engine"
	"antmaps-api/internal/memstore"
)

const fixture = "../../data/fixture/antmaps.json"

func TestRun(t *testing.T) {
	ms, err := memstore.Open(fixture)
	require.NoError(t, err)
	e := engine.New(ms)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, run(ctx, e, []string{"genus-list", "subfamily=myrmicinae"}, "csv", &buf))
	assert.Equal(t, "genus\nPheidole\nSolenopsis\n", buf.String())

	buf.Reset()
	require.NoError(t, run(ctx, e, []string{"subfamilies"}, "json", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), `{"subfamilies":[{"key":"Dolichoderinae"`))

	buf.Reset()
	err = run(ctx, e, []string{"species-in-common"}, "json", &buf)
	assert.Error(t, err)
	assert.Contains(t, buf.String(), `"errormessage":"Please supply a 'bentity_id' argument."`)

	assert.Error(t, run(ctx, e, []string{"nope"}, "json", &buf))
	assert.Error(t, run(ctx, e, []string{"species", "genus"}, "json", &buf))
}

func TestCommandWithFixture(t *testing.T) {
	var out bytes.Buffer
	cmd := command()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"species-range", "species=Solenopsis.invicta", "--fixture", fixture, "--format", "csv"})
	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "species,unit_id,unit_name,status,record_count,literature_count,museum_count,database_count", lines[0])
	assert.Len(t, lines, 3)
}
