package process_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procpeek/process"
	"procpeek/process/processtest"
)

func attach(t *testing.T, sys *processtest.FakeSystem, opts ...process.Option) *process.ProcessHandle {
	t.Helper()
	proc, err := process.AttachByWindowTitle(sys, testTitle, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = proc.Close() })
	return proc
}

func TestFindModuleBase(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("hl2.exe", 0x00400000, 0x1000)
	fp.AddModule("engine.dll", 0x20000000, 0x500000)
	fp.AddModule("client.dll", 0x30000000, 0xD00000)
	proc := attach(t, sys)

	base, ok := proc.FindModuleBase("client.dll")
	require.True(t, ok)
	assert.Equal(t, process.ProcessMemoryAddress(0x30000000), base)

	// snapshot closed, only the process handle remains
	assert.Equal(t, 1, sys.OpenHandles())
}

func TestFindModuleBaseNotFoundClosesSnapshot(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("hl2.exe", 0x00400000, 0x1000)
	fp.AddModule("engine.dll", 0x20000000, 0x500000)
	proc := attach(t, sys)

	for i := 0; i < 3; i++ {
		_, ok := proc.FindModuleBase("client.dll")
		assert.False(t, ok)
	}

	assert.Equal(t, 3, sys.Snapshots())
	assert.Equal(t, 1, sys.OpenHandles())
	assert.Equal(t, 0, sys.DoubleCloses())
}

func TestFindModuleBaseEmptyModuleList(t *testing.T) {
	sys, _ := newTarget(t)
	proc := attach(t, sys)

	_, ok := proc.FindModuleBase("client.dll")
	assert.False(t, ok)
	assert.Equal(t, 1, sys.Snapshots())
	assert.Equal(t, 1, sys.OpenHandles())
}

func TestFindModuleBaseSnapshotFailed(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("client.dll", 0x30000000, 0xD00000)
	fp.SnapshotErr = processtest.ErrorAccessDenied
	proc := attach(t, sys)

	_, ok := proc.FindModuleBase("client.dll")
	assert.False(t, ok)
	assert.Equal(t, 1, sys.OpenHandles())
}

func TestFindModuleBaseMatching(t *testing.T) {
	tests := []struct {
		name     string
		modules  []processtest.FakeModule
		query    string
		wantBase process.ProcessMemoryAddress
		wantOK   bool
	}{
		{
			name: "first match in enumeration order wins",
			modules: []processtest.FakeModule{
				{Name: "client.dll", Base: 0x11110000},
				{Name: "client.dll", Base: 0x22220000},
			},
			query:    "client.dll",
			wantBase: 0x11110000,
			wantOK:   true,
		},
		{
			name:    "case sensitive",
			modules: []processtest.FakeModule{{Name: "Client.dll", Base: 0x11110000}},
			query:   "client.dll",
		},
		{
			name:    "no prefix match",
			modules: []processtest.FakeModule{{Name: "client.dll.bak", Base: 0x11110000}},
			query:   "client.dll",
		},
		{
			name: "trailing bytes after terminator ignored",
			modules: []processtest.FakeModule{
				{RawName: append([]byte("client.dll"), 0, 0xFF, 'x', 0x80), Base: 0x33330000},
			},
			query:    "client.dll",
			wantBase: 0x33330000,
			wantOK:   true,
		},
		{
			name: "undecodable name skipped",
			modules: []processtest.FakeModule{
				{RawName: []byte{0xC3, 0x28, 0}, Base: 0x11110000},
				{Name: "client.dll", Base: 0x44440000},
			},
			query:    "client.dll",
			wantBase: 0x44440000,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, fp := newTarget(t)
			fp.Modules = tt.modules
			proc := attach(t, sys)

			base, ok := proc.FindModuleBase(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, 1, sys.OpenHandles())
		})
	}
}

func TestFindModuleBaseCache(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("client.dll", 0x30000000, 0xD00000)
	proc := attach(t, sys, process.WithModuleCache())

	for i := 0; i < 3; i++ {
		base, ok := proc.FindModuleBase("client.dll")
		require.True(t, ok)
		assert.Equal(t, process.ProcessMemoryAddress(0x30000000), base)
	}
	assert.Equal(t, 1, sys.Snapshots())

	// misses are not cached
	_, ok := proc.FindModuleBase("server.dll")
	assert.False(t, ok)
	_, ok = proc.FindModuleBase("server.dll")
	assert.False(t, ok)
	assert.Equal(t, 3, sys.Snapshots())
}

func TestFindModuleBaseReenumeratesByDefault(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("client.dll", 0x30000000, 0xD00000)
	proc := attach(t, sys)

	_, ok := proc.FindModuleBase("client.dll")
	require.True(t, ok)

	fp.Modules[0].Base = 0x50000000
	base, ok := proc.FindModuleBase("client.dll")
	require.True(t, ok)
	assert.Equal(t, process.ProcessMemoryAddress(0x50000000), base)
	assert.Equal(t, 2, sys.Snapshots())
}

func TestModules(t *testing.T) {
	sys, fp := newTarget(t)
	fp.AddModule("hl2.exe", 0x00400000, 0x1000)
	fp.AddModule("client.dll", 0x30000000, 0xD00000)
	proc := attach(t, sys)

	modules, err := proc.Modules()
	require.NoError(t, err)
	assert.Equal(t, []process.ModuleInfo{
		{Name: "hl2.exe", BaseAddress: 0x00400000, Size: 0x1000},
		{Name: "client.dll", BaseAddress: 0x30000000, Size: 0xD00000},
	}, modules)
	assert.Equal(t, 1, sys.OpenHandles())
}

func TestModulesErrors(t *testing.T) {
	t.Run("snapshot failed", func(t *testing.T) {
		sys, fp := newTarget(t)
		fp.SnapshotErr = processtest.ErrorAccessDenied
		proc := attach(t, sys)

		_, err := proc.Modules()
		require.ErrorIs(t, err, process.ErrSnapshotFailed)

		var osErr *process.OSError
		require.ErrorAs(t, err, &osErr)
		assert.Equal(t, uint32(processtest.ErrorAccessDenied), osErr.Code)
	})

	t.Run("invalid name is skipped", func(t *testing.T) {
		sys, fp := newTarget(t)
		fp.Modules = []processtest.FakeModule{{RawName: []byte{0xFF, 0}, Base: 0x1000}}
		fp.AddModule("client.dll", 0x30000000, 0xD00000)
		proc := attach(t, sys)

		modules, err := proc.Modules()
		require.NoError(t, err)
		assert.Equal(t, []process.ModuleInfo{
			{Name: "client.dll", BaseAddress: 0x30000000, Size: 0xD00000},
		}, modules)
		assert.Equal(t, 1, sys.OpenHandles())
	})
}
