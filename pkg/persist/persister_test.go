package persist

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// persisterState is a struct for persister round-trip testing.
type persisterState struct {
	Label string `json:"label" cbor:"1,keyasint"`
	Value int    `json:"value" cbor:"2,keyasint"`
}

func TestPersister_SaveLoad(t *testing.T) {
	t.Parallel()

	for name, codec := range map[string]Codec{"json": NewJSONCodec(), "cbor": newCBOR(t)} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := NewPersister[persisterState](codec)
			path := filepath.Join(t.TempDir(), "state"+codec.Extension())

			original := persisterState{Label: "hello", Value: 42}

			require.NoError(t, p.Save(path, func() *persisterState { return &original }))

			var restored persisterState

			err := p.Load(path, func(s *persisterState) error {
				restored = *s

				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, original, restored)
		})
	}
}

func TestPersister_RestoreError(t *testing.T) {
	t.Parallel()

	p := NewPersister[persisterState](NewJSONCodec())
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, p.Save(path, func() *persisterState { return &persisterState{} }))

	rejected := errors.New("rejected")

	err := p.Load(path, func(*persisterState) error { return rejected })
	require.ErrorIs(t, err, rejected)
}
