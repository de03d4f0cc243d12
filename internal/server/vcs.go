package server

import (
	"github.com/eibrahimli/anvil/internal/vcs"
)

// acquireVCSWatcher starts (or reuses) the branch watcher for directory and
// bumps its refcount. Watchers are keyed by directory rather than session ID
// since several sessions commonly share one workspace and should share one
// fsnotify handle on it.
func (s *Server) acquireVCSWatcher(directory string) {
	if directory == "" {
		return
	}

	s.vcsMu.Lock()
	defer s.vcsMu.Unlock()

	if entry, ok := s.vcsWatchers[directory]; ok {
		entry.refCount++
		return
	}

	w, err := vcs.NewWatcher(directory)
	if err != nil || w == nil {
		// Not a git repo, or the watch failed to attach; branch events for
		// this directory just won't fire. Nothing else depends on it.
		return
	}
	w.Start()
	s.vcsWatchers[directory] = &vcsWatcherEntry{watcher: w, refCount: 1}
}

// releaseVCSWatcher drops one reference to directory's watcher, stopping and
// discarding it once nothing references it anymore.
func (s *Server) releaseVCSWatcher(directory string) {
	if directory == "" {
		return
	}

	s.vcsMu.Lock()
	defer s.vcsMu.Unlock()

	entry, ok := s.vcsWatchers[directory]
	if !ok {
		return
	}
	entry.refCount--
	if entry.refCount > 0 {
		return
	}
	entry.watcher.Stop()
	delete(s.vcsWatchers, directory)
}
