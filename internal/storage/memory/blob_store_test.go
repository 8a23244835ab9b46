package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("%PDF-1.4")
	uri, err := store.PutObject(context.Background(), "toyota_pdf/2024/T-MMS-24Camry-abc.pdf", "application/pdf", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://toyota_pdf/2024/T-MMS-24Camry-abc.pdf", uri)

	payload[0] = 'X'
	got, ok := store.Object("toyota_pdf/2024/T-MMS-24Camry-abc.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(got))
}

func TestPutObjectKeepsFirstWrite(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	_, err := store.PutObject(ctx, "a", "", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "a", "", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	got, _ := store.Object("a")
	assert.Equal(t, "first", string(got))
	assert.Equal(t, []string{"a"}, store.Paths())
}

func TestPutObjectHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBlobStore().PutObject(ctx, "a", "", bytes.NewReader(nil))
	require.ErrorIs(t, err, context.Canceled)
	_, ok := NewBlobStore().Object("a")
	assert.False(t, ok)
}

func TestFindObjectPicksLastMatch(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	for _, p := range []string{"toyota_pdf/2024/T-MMS-24Camry-bbb.pdf", "toyota_pdf/2024/T-MMS-24Camry-aaa.pdf", "toyota_pdf/2024/T-MMS-24RAV4-ccc.pdf"} {
		_, err := store.PutObject(ctx, p, "", bytes.NewReader([]byte(p)))
		require.NoError(t, err)
	}

	uri, body, err := store.FindObject(ctx, "toyota_pdf/2024/T-MMS-24Camry-")
	require.NoError(t, err)
	assert.Equal(t, "memory://toyota_pdf/2024/T-MMS-24Camry-bbb.pdf", uri)
	assert.Equal(t, "toyota_pdf/2024/T-MMS-24Camry-bbb.pdf", string(body))

	_, _, err = store.FindObject(ctx, "toyota_pdf/2023/")
	require.ErrorIs(t, err, collector.ErrObjectNotFound)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = store.FindObject(canceled, "toyota_pdf/")
	require.ErrorIs(t, err, context.Canceled)
}
