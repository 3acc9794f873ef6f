//go:build integration

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/mentorkb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Client(ctx context.Context, t *testing.T) *S3Client {
	container := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() { container.Terminate(ctx) })

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-exports",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	return client
}

func TestS3Client_ExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestS3Client(ctx, t)

	local := filepath.Join(t.TempDir(), "channel.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"messages": []}`), 0o644))

	require.NoError(t, client.UploadExport(ctx, "exports/channel.json", local))

	keys, err := client.ListExports(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/channel.json"}, keys)

	meta, err := client.HeadObject(ctx, "exports/channel.json")
	require.NoError(t, err)
	assert.Equal(t, int64(len(`{"messages": []}`)), meta.ContentLength)

	fetched, err := client.FetchExport(ctx, "exports/channel.json")
	require.NoError(t, err)
	defer os.Remove(fetched)

	// the temp file keeps the export's extension for format detection
	assert.Equal(t, ".json", filepath.Ext(fetched))

	content, err := os.ReadFile(fetched)
	require.NoError(t, err)
	assert.Equal(t, `{"messages": []}`, string(content))
}

func TestS3Client_ListExports_EmptyPrefix(t *testing.T) {
	ctx := context.Background()
	client := newTestS3Client(ctx, t)

	keys, err := client.ListExports(ctx, "nothing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
