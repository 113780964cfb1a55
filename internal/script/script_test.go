package script

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

const callPreemptsScript = `
name: call preempts notification
steps:
  - at: 0s
    kind: notification
    key: "0|com.chat.app|1"
    package: com.chat.app
    payload: {title: Alice, text: hi}
    expect: "0|com.chat.app|1"
  - at: 1s
    kind: incoming_call
    key: "call:1"
    payload: {caller: Bob}
    expect: "call:1"
  - at: 2s
    kind: ongoing_call
    key: "call:1"
    payload: {caller: Bob, duration_text: "0:05"}
    expect: "call:1"
  - at: 3s
    kind: call_ended
    key: "call:1"
    expect: "0|com.chat.app|1"
`

func TestParse_SortsByOffset(t *testing.T) {
	data := []byte(`
steps:
  - at: 2s
    kind: dismiss_all
  - at: 1s
    kind: notification
    key: k1
`)
	sc, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "notification", sc.Steps[0].Kind)
	assert.Equal(t, time.Second, sc.Steps[0].Offset())
	assert.Equal(t, "dismiss_all", sc.Steps[1].Kind)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", `steps: []`},
		{"missing kind", "steps:\n  - at: 1s\n    key: k1\n"},
		{"bad offset", "steps:\n  - at: soon\n    kind: notification\n    key: k1\n"},
		{"negative offset", "steps:\n  - at: -1s\n    kind: notification\n    key: k1\n"},
		{"bad yaml", `steps: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(callPreemptsScript), 0600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "call preempts notification", sc.Name)
	assert.Len(t, sc.Steps, 4)
}

func TestRunner_CallPreemptsAndResumes(t *testing.T) {
	sc, err := Parse([]byte(callPreemptsScript))
	require.NoError(t, err)

	var out bytes.Buffer
	r := NewRunner(island.Options{}, &out)
	res, err := r.Run(sc)
	require.NoError(t, err)

	assert.Zero(t, res.Failures)
	require.Len(t, res.Steps, 4)
	assert.Equal(t, "call:1", res.Steps[1].ActiveKey)
	assert.Equal(t, "0|com.chat.app|1", res.Steps[3].ActiveKey)
	assert.Contains(t, out.String(), "done:")
}

func TestRunner_ReportsExpectationMiss(t *testing.T) {
	sc, err := Parse([]byte(`
steps:
  - at: 0s
    kind: notification
    key: k1
    payload: {title: t}
    expect: none
`))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := NewRunner(island.Options{}, &out).Run(sc)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failures)
	assert.False(t, res.Steps[0].Passed)
	assert.Contains(t, out.String(), "FAIL: 1st step")
}

func TestRunner_GuardWindowsOnSimulatedTime(t *testing.T) {
	sc, err := Parse([]byte(`
steps:
  - at: 0s
    kind: notification
    key: k1
    payload: {title: t}
    expect: k1
  - at: 5s
    kind: user_dismiss
    key: k1
    expect: none
  - at: 10s
    kind: notification
    key: k1
    payload: {title: t}
    expect: none
  - at: 70s
    kind: notification
    key: k1
    payload: {title: t}
    expect: k1
`))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := NewRunner(island.Options{}, &out).Run(sc)
	require.NoError(t, err)
	assert.Zero(t, res.Failures)
}

func TestRunner_RejectsPayloadOnBareKind(t *testing.T) {
	sc, err := Parse([]byte(`
steps:
  - at: 0s
    kind: call_ended
    key: k1
    payload: {caller: Bob}
`))
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = NewRunner(island.Options{}, &out).Run(sc)
	assert.Error(t, err)
}
