package logger

import (
	"sync"
)

// named holds the per-component loggers the CLI seeds at startup, so that
// packages can look theirs up without threading a *Logger through.
var named = struct {
	sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores l under name, replacing any earlier entry.
func Register(name string, l *Logger) {
	named.Lock()
	defer named.Unlock()
	named.loggers[name] = l
}

// Get returns the logger registered under name. Unregistered names fall back
// to the global logger tagged with name as its component.
func Get(name string) *Logger {
	named.RLock()
	l, ok := named.loggers[name]
	named.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives a component logger for each name from the current
// global logger. Call it after SetGlobalLogger.
func RegisterDefaults(names ...string) {
	base := GetGlobalLogger()
	named.Lock()
	defer named.Unlock()
	for _, name := range names {
		named.loggers[name] = base.WithComponent(name)
	}
}
