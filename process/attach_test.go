package process_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procpeek/process"
	"procpeek/process/processtest"
)

const (
	testTitle = "Team Fortress 2"
	testPID   = process.ProcessID(4242)
	testPath  = `C:\Program Files (x86)\Steam\steamapps\common\Team Fortress 2\hl2.exe`
)

func newTarget(t *testing.T) (*processtest.FakeSystem, *processtest.FakeProcess) {
	t.Helper()
	sys := processtest.New()
	fp := sys.AddProcess(testPID, testPath)
	sys.AddWindow(testTitle, testPID)
	return sys, fp
}

func TestAttachByWindowTitle(t *testing.T) {
	sys, _ := newTarget(t)

	proc, err := process.AttachByWindowTitle(sys, testTitle)
	require.NoError(t, err)

	assert.Equal(t, testPID, proc.PID())
	assert.Equal(t, testPath, proc.Path())
	assert.Equal(t, "hl2.exe", proc.Name())
	assert.True(t, proc.IsOpen())
	assert.NotZero(t, proc.Handle())
	assert.Equal(t, 1, sys.OpenHandles())

	require.NoError(t, proc.Close())
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestAttachWindowNotFound(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{name: "no such window", title: "Half-Life 3"},
		{name: "substring", title: "Team Fortress"},
		{name: "case differs", title: "team fortress 2"},
		{name: "empty", title: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, _ := newTarget(t)

			proc, err := process.AttachByWindowTitle(sys, tt.title)
			require.ErrorIs(t, err, process.ErrWindowNotFound)
			assert.Nil(t, proc)
			assert.Equal(t, 0, sys.OpenedProcesses())
			assert.Equal(t, 0, sys.OpenHandles())
		})
	}
}

func TestAttachProcessOpenFailed(t *testing.T) {
	sys, fp := newTarget(t)
	fp.Denied = true

	_, err := process.AttachByWindowTitle(sys, testTitle)
	require.ErrorIs(t, err, process.ErrProcessOpenFailed)

	var osErr *process.OSError
	require.True(t, errors.As(err, &osErr))
	assert.Equal(t, uint32(processtest.ErrorAccessDenied), osErr.Code)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestAttachProcessExitedBeforeOpen(t *testing.T) {
	sys, _ := newTarget(t)
	sys.Exit(testPID)

	_, err := process.AttachByWindowTitle(sys, testTitle)
	require.ErrorIs(t, err, process.ErrProcessOpenFailed)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestAttachPathQueryFailedClosesHandle(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(fp *processtest.FakeProcess)
		wantCode uint32
	}{
		{
			name:     "os error",
			setup:    func(fp *processtest.FakeProcess) { fp.PathErr = processtest.ErrorAccessDenied },
			wantCode: uint32(processtest.ErrorAccessDenied),
		},
		{
			name: "path longer than buffer",
			setup: func(fp *processtest.FakeProcess) {
				long := make([]byte, process.MaxPathBuffer+10)
				for i := range long {
					long[i] = 'a'
				}
				fp.RawPath = long
			},
			wantCode: uint32(processtest.ErrorInsufficientBuffer),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, fp := newTarget(t)
			tt.setup(fp)

			proc, err := process.AttachByWindowTitle(sys, testTitle)
			require.ErrorIs(t, err, process.ErrPathQueryFailed)
			assert.Nil(t, proc)

			var osErr *process.OSError
			require.ErrorAs(t, err, &osErr)
			assert.Equal(t, tt.wantCode, osErr.Code)

			assert.Equal(t, 1, sys.OpenedProcesses())
			assert.Equal(t, 0, sys.OpenHandles())
			assert.Equal(t, 0, sys.DoubleCloses())
		})
	}
}

func TestAttachInvalidPathEncodingClosesHandle(t *testing.T) {
	sys, fp := newTarget(t)
	fp.RawPath = []byte{'C', ':', '\\', 0xFF, 0xFE, 'x', 0}

	_, err := process.AttachByWindowTitle(sys, testTitle)
	require.ErrorIs(t, err, process.ErrInvalidEncoding)
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestAttachIgnoresBytesAfterPathTerminator(t *testing.T) {
	sys, fp := newTarget(t)
	fp.RawPath = append([]byte(`C:\game\hl2.exe`), 0, 0xFF, 0xFE, 0x80)

	proc, err := process.AttachByWindowTitle(sys, testTitle)
	require.NoError(t, err)
	defer proc.Close()

	assert.Equal(t, `C:\game\hl2.exe`, proc.Path())
}

func TestCloseIsIdempotent(t *testing.T) {
	sys, _ := newTarget(t)

	proc, err := process.AttachByWindowTitle(sys, testTitle)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, proc.Close())
	}

	assert.False(t, proc.IsOpen())
	assert.Equal(t, 1, sys.Closed())
	assert.Equal(t, 0, sys.DoubleCloses())
	assert.Equal(t, 0, sys.OpenHandles())
}

func TestClosedHandleRejectsAccess(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("client.dll", 0x10000000, 0x1000)

	proc, err := process.AttachByWindowTitle(sys, testTitle)
	require.NoError(t, err)
	require.NoError(t, proc.Close())

	_, err = proc.ReadMemory(0x10000000, 2)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)

	err = proc.WriteMemory(0x10000000, []byte{1})
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)

	_, ok := proc.FindModuleBase("client.dll")
	assert.False(t, ok)

	_, err = proc.Modules()
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)

	assert.Equal(t, 0, sys.Snapshots())
}
