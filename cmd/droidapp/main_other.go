//go:build !android

package main

import (
	"fmt"
	"os"
)

func main() {
	if _, err := loadAppConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	fmt.Fprintln(os.Stderr, "droidapp only runs as an Android app (gomobile build); use droidshell on the desktop")
	os.Exit(1)
}
