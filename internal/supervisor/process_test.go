package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellboot/internal/reporting"
)

func TestParseStatusLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantStat reporting.Status
		wantPort int
		wantMsg  string
	}{
		{
			name:     "ready with port",
			line:     "status: ready port=7100",
			wantOK:   true,
			wantStat: reporting.StatusReady,
			wantPort: 7100,
		},
		{
			name:     "port check",
			line:     "status: port-check",
			wantOK:   true,
			wantStat: reporting.StatusPortCheck,
		},
		{
			name:     "initializing with message",
			line:     "status: initializing loading model index",
			wantOK:   true,
			wantStat: reporting.StatusInitializing,
			wantMsg:  "loading model index",
		},
		{
			name:     "leading whitespace tolerated",
			line:     "   status: ready",
			wantOK:   true,
			wantStat: reporting.StatusReady,
		},
		{
			name:   "plain log line ignored",
			line:   "listening on 7100",
			wantOK: false,
		},
		{
			name:   "unknown phase rejected",
			line:   "status: warming-up",
			wantOK: false,
		},
		{
			name:   "empty status rejected",
			line:   "status:",
			wantOK: false,
		},
		{
			name:     "bogus port ignored, message kept",
			line:     "status: ready port=banana serving",
			wantOK:   true,
			wantStat: reporting.StatusReady,
			wantPort: 0,
			wantMsg:  "serving",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := parseStatusLine("svc", tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, "svc", ev.ServiceName)
			assert.Equal(t, tt.wantStat, ev.Status)
			assert.Equal(t, tt.wantPort, ev.Port)
			assert.Equal(t, tt.wantMsg, ev.Message)
		})
	}
}

func TestNewManager_Validation(t *testing.T) {
	bus := reporting.NewBus()

	_, err := NewManager(bus, nil, []ProcessDefinition{{Name: "", Command: []string{"true"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")

	_, err = NewManager(bus, nil, []ProcessDefinition{{Name: "svc"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command")

	_, err = NewManager(bus, nil, []ProcessDefinition{
		{Name: "svc", Command: []string{"true"}},
		{Name: "svc", Command: []string{"true"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestManager_ProcessStatus_Unknown(t *testing.T) {
	m, err := NewManager(reporting.NewBus(), nil, nil)
	require.NoError(t, err)

	_, ok := m.ProcessStatus("ghost")
	assert.False(t, ok)
}

func TestManager_Stop_NotStarted(t *testing.T) {
	m, err := NewManager(reporting.NewBus(), nil, []ProcessDefinition{
		{Name: "svc", Command: []string{"true"}},
	})
	require.NoError(t, err)

	err = m.Stop("svc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}
