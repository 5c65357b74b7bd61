package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"shadowboard/internal/payload"
)

func TestReaderLifecycle(t *testing.T) {
	r := NewReader(payload.NewVerifier("test-secret"))

	empty := gocv.NewMat()
	defer empty.Close()

	// The detector lives for the reader's lifetime; repeated Decode calls
	// share it.
	for i := 0; i < 3; i++ {
		_, err := r.Decode(empty)
		require.ErrorIs(t, err, ErrDecodeUnavailable)
	}

	assert.NoError(t, r.Close())
}

func TestCollapseDropsDuplicateIdentities(t *testing.T) {
	in := []payload.Payload{
		{Kind: payload.KindSlot, ID: "T17"},
		{Kind: payload.KindSlot, ID: "T17"},
		{Kind: payload.KindWorker, ID: "W01", WorkerName: "Alice"},
		{Kind: payload.KindSlot, ID: "T17"},
		{Kind: payload.KindWorker, ID: "W01"},
	}

	out := Collapse(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "T17", out[0].ID)
	assert.Equal(t, "W01", out[1].ID)
	// First occurrence wins.
	assert.Equal(t, "Alice", out[1].WorkerName)
}

func TestCollapseEmpty(t *testing.T) {
	assert.Nil(t, Collapse(nil))
	assert.Nil(t, Collapse([]payload.Payload{}))
}

func TestCollapsePreservesOrder(t *testing.T) {
	in := []payload.Payload{
		{ID: "c"}, {ID: "a"}, {ID: "b"},
	}
	out := Collapse(in)
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
