//go:build !unix && !windows

package storage

import "os"

// Advisory locks are not available; opens are not guarded.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
