package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/console"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 5,,9 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs("3,x")
	require.Error(t, err)
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDay("2024-12-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())

	_, err = parseDay("01/12/2024")
	require.Error(t, err)
}

func TestOptionalOnlyForGivenFlags(t *testing.T) {
	fs := newFlags("t")
	name := fs.String("name", "", "")
	typ := fs.String("type", "", "")
	require.NoError(t, fs.Parse([]string{"-name", ""}))

	got := optional(fs, "name", *name)
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
	assert.Nil(t, optional(fs, "type", *typ))
}

func TestOrgIDFallsBackToSelection(t *testing.T) {
	state := console.NewState(t.TempDir() + "/state.json")
	a := &app{session: console.NewSession(console.NewClient("http://127.0.0.1:1", ""), state)}

	_, err := a.orgID(0, nil)
	require.Error(t, err)

	state.Select(42)
	id, err := a.orgID(0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = a.orgID(0, []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	id, err = a.orgID(9, []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = a.orgID(0, []string{"abc"})
	require.Error(t, err)
}
