// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package workspace

// overrideUserHomeDir swaps userHomeDir and returns a restore func.
func overrideUserHomeDir(fn func() (string, error)) func() {
	old := userHomeDir
	userHomeDir = fn
	return func() { userHomeDir = old }
}

// overrideGOOS swaps getGOOS and returns a restore func.
func overrideGOOS(fn func() string) func() {
	old := getGOOS
	getGOOS = fn
	return func() { getGOOS = old }
}
