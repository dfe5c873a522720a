//go:build !linux && !windows

package storage

import "path/filepath"

// macOS and the BSDs get the Linux layout under $HOME; XDG variables still win.

func platformConfigDefault(getenv func(string) string) string {
	return filepath.Join(getenv("HOME"), ".config", AppName)
}

func platformDataDefault(getenv func(string) string) string {
	return filepath.Join(getenv("HOME"), ".local", "share", AppName)
}

func platformCacheDefault(getenv func(string) string) string {
	return filepath.Join(getenv("HOME"), ".cache", AppName)
}

func platformStateDefault(getenv func(string) string) string {
	return filepath.Join(getenv("HOME"), ".local", "state", AppName)
}
