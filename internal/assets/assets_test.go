package assets

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadsEmbedded(t *testing.T) {
	pc, err := Payload(PageCyclerScript)
	require.NoError(t, err)
	assert.Contains(t, pc, "__pc_load_time")

	si, err := Payload(SpeedIndexScript)
	require.NoError(t, err)
	assert.Contains(t, si, "__si_done")

	_, err = Payload("missing.js")
	assert.Error(t, err)
}

func TestPayloadListing(t *testing.T) {
	entries, err := fs.ReadDir(Payloads, "payloads")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{PageCyclerScript, SpeedIndexScript}, names)
}
