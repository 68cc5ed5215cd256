package def_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticksm/ticksm"
	"github.com/ticksm/ticksm/def"
)

const trafficLight = `
name: traffic-light
start: red
states:
  - name: red
    entry: light.on
    exec: red.wait
    exit: light.off
  - name: green
    exec: green.wait
  - name: yellow
    exec: yellow.wait
`

func noop(m *ticksm.Machine) {}

func registry() def.Registry {
	return def.Registry{
		"light.on":    noop,
		"light.off":   noop,
		"red.wait":    noop,
		"green.wait":  noop,
		"yellow.wait": noop,
	}
}

func TestParseAndBuild(t *testing.T) {
	d, err := def.Parse([]byte(trafficLight))
	require.NoError(t, err)
	assert.Equal(t, "traffic-light", d.Name)
	assert.Equal(t, "red", d.Start)
	require.Len(t, d.States, 3)

	table, err := d.Build(registry())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Start)
	require.Len(t, table.States, 3)

	i, ok := table.Index("yellow")
	require.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = table.Index("purple")
	assert.False(t, ok)

	// Bound slots are set, unbound ones are nil.
	assert.NotNil(t, table.States[0].OnEntry)
	assert.NotNil(t, table.States[0].OnExit)
	assert.NotNil(t, table.States[1].OnExec)
	assert.Nil(t, table.States[1].OnEntry)
	assert.Nil(t, table.States[1].OnExit)
}

func TestBuiltTableDrivesAMachine(t *testing.T) {
	d, err := def.Parse([]byte(trafficLight))
	require.NoError(t, err)

	var reds int
	reg := registry()
	reg["red.wait"] = func(m *ticksm.Machine) { reds++ }

	table, err := d.Build(reg)
	require.NoError(t, err)

	m, err := ticksm.New(ticksm.TickFunc(func() ticksm.Tick { return 0 }), table.States, table.Start, nil)
	require.NoError(t, err)

	require.NoError(t, m.Execute())
	assert.Equal(t, 1, reds)

	green, ok := table.Index("green")
	require.True(t, ok)
	require.NoError(t, m.Transition(ticksm.TransExit, green))
	assert.Equal(t, green, m.StateIndex())
}

func TestStartDefaultsToFirstState(t *testing.T) {
	d, err := def.Parse([]byte("states:\n  - name: only\n    exec: run\n"))
	require.NoError(t, err)

	table, err := d.Build(def.Registry{"run": noop})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Start)
}

func TestValidateRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no states", "name: empty\n"},
		{"unnamed state", "states:\n  - exec: run\n"},
		{"duplicate name", "states:\n  - name: a\n  - name: a\n"},
		{"unknown start", "start: missing\nstates:\n  - name: a\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := def.Parse([]byte(tc.yaml))
			require.NoError(t, err)
			assert.Error(t, d.Validate())
		})
	}
}

func TestBuildRejectsUnregisteredHandler(t *testing.T) {
	d, err := def.Parse([]byte(trafficLight))
	require.NoError(t, err)

	reg := registry()
	delete(reg, "green.wait")
	_, err = d.Build(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "green.wait")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := def.Parse([]byte("states: [unclosed"))
	assert.Error(t, err)
}
