package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetadataMinimal(t *testing.T) {
	m := BuildMetadata(7, "Qm123", nil, "")
	assert.Equal(t, "GLISK S0 #7", m.Name)
	assert.Equal(t, "ipfs://Qm123", m.Image)
	assert.Empty(t, m.ExternalURL)
	assert.Empty(t, m.Attributes)
}

func TestBuildMetadataWithTwitterHandleAndGallery(t *testing.T) {
	handle := "gliskart"
	m := BuildMetadata(7, "Qm123", &handle, "https://gallery.glisk.xyz")
	assert.Equal(t, "https://gallery.glisk.xyz/token/7", m.ExternalURL)
	require := assert.New(t)
	require.Len(m.Attributes, 1)
	require.Equal("Author X Handle", m.Attributes[0].TraitType)
	require.Equal("@gliskart", m.Attributes[0].Value)
}

func TestBuildMetadataIgnoresBlankTwitterHandle(t *testing.T) {
	blank := ""
	m := BuildMetadata(1, "Qm1", &blank, "")
	assert.Empty(t, m.Attributes)
}
