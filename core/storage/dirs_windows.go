//go:build windows

package storage

import "path/filepath"

func platformConfigDefault(getenv func(string) string) string {
	return filepath.Join(getenv("APPDATA"), AppName, "config")
}

func platformDataDefault(getenv func(string) string) string {
	return filepath.Join(getenv("APPDATA"), AppName, "data")
}

func platformCacheDefault(getenv func(string) string) string {
	return filepath.Join(getenv("LOCALAPPDATA"), AppName, "cache")
}

func platformStateDefault(getenv func(string) string) string {
	return filepath.Join(getenv("LOCALAPPDATA"), AppName, "state")
}
