package process

// FindModuleBase returns the load address of the first module, in enumeration order,
// whose name equals name exactly. Enumeration errors are logged and reported as not found.
func (p *ProcessHandle) FindModuleBase(name string) (ProcessMemoryAddress, bool) {
	p.mu.Lock()
	open := p.handle != 0
	if base, ok := p.modules[name]; ok {
		p.mu.Unlock()
		return base, true
	}
	p.mu.Unlock()

	if !open {
		return 0, false
	}

	var base ProcessMemoryAddress
	found := false
	err := p.walkModules(func(entry *ModuleEntry) bool {
		moduleName, err := DecodeCString(entry.Name[:])
		if err != nil {
			p.log.Debugln("Skipping module with undecodable name at", entry.BaseAddress.ToString(), err)
			return true
		}
		if moduleName != name {
			return true
		}
		base = entry.BaseAddress
		found = true
		return false
	})
	if err != nil {
		p.log.Warn("Module enumeration failed: ", err)
		return 0, false
	}
	if !found {
		p.log.Debugln("Module", name, "not found")
		return 0, false
	}

	p.mu.Lock()
	if p.modules != nil {
		p.modules[name] = base
	}
	p.mu.Unlock()

	return base, true
}

// Modules lists every module of the process in enumeration order. Records whose
// name does not decode are skipped, as in FindModuleBase.
func (p *ProcessHandle) Modules() ([]ModuleInfo, error) {
	if !p.IsOpen() {
		return nil, ErrProcessNotOpen
	}

	var modules []ModuleInfo
	err := p.walkModules(func(entry *ModuleEntry) bool {
		name, err := DecodeCString(entry.Name[:])
		if err != nil {
			p.log.Warn("Skipping module with undecodable name at ", entry.BaseAddress.ToString(), ": ", err)
			return true
		}
		modules = append(modules, ModuleInfo{
			Name:        name,
			BaseAddress: entry.BaseAddress,
			Size:        entry.Size,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return modules, nil
}

// walkModules calls fn for each module record until fn returns false or the list ends.
// The snapshot is closed on every path. Running off the end of the list is not an error.
func (p *ProcessHandle) walkModules(fn func(entry *ModuleEntry) bool) error {
	snapshot, err := p.sys.CreateModuleSnapshot(p.pid)
	if err != nil {
		return newOSError(ErrSnapshotFailed, err)
	}
	defer func() {
		if err := p.sys.CloseHandle(snapshot); err != nil {
			p.log.Warn("CloseHandle on module snapshot failed: ", err)
		}
	}()

	var entry ModuleEntry
	if err := p.sys.FirstModule(snapshot, &entry); err != nil {
		p.log.Debugln("Module32First failed:", err)
		return nil
	}

	for fn(&entry) {
		entry = ModuleEntry{}
		if err := p.sys.NextModule(snapshot, &entry); err != nil {
			return nil
		}
	}
	return nil
}
