// Command lightsail-auto runs an unattended LightSail reading session: it
// opens a browser, waits for sign-in, then reads books page by page while
// answering assessments, with a local dashboard reporting progress.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
