// Package assets embeds the in-page instrumentation payloads.
package assets

import (
	"embed"
	"io/fs"
)

// Payloads holds every script under payloads/.
//
//go:embed payloads/*.js
var Payloads embed.FS

// Names of the embedded payloads.
const (
	PageCyclerScript = "page_cycler.js"
	SpeedIndexScript = "speed_index.js"
)

// Payload returns the source of an embedded payload.
func Payload(name string) (string, error) {
	b, err := fs.ReadFile(Payloads, "payloads/"+name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MustPayload is Payload for names known at compile time.
func MustPayload(name string) string {
	s, err := Payload(name)
	if err != nil {
		panic(err)
	}
	return s
}
