// Command voxstream streams text to an ElevenLabs voice and writes the
// synthesized audio as it arrives.
//
// Usage:
//
//	voxstream speak --config config.yaml --out speech.mp3 "Hello there."
//	cat script.txt | voxstream speak --config config.yaml --out speech.mp3
package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/voxstream/cmd/voxstream/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
