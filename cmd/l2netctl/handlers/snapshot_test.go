package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/imamik/l2net/internal/config"
	"github.com/imamik/l2net/internal/platform/s3"
)

type putCall struct {
	Bucket, Key, ContentType string
	Data                     []byte
}

type fakeObjectStore struct {
	ensureErr error
	ensured   []string
	puts      []putCall
	objects   []s3.Object
	listed    string
}

func (f *fakeObjectStore) EnsureBucket(_ context.Context, bucket string) error {
	f.ensured = append(f.ensured, bucket)
	return f.ensureErr
}

func (f *fakeObjectStore) PutObject(_ context.Context, bucket, key, contentType string, data []byte) error {
	f.puts = append(f.puts, putCall{bucket, key, contentType, data})
	return nil
}

func (f *fakeObjectStore) ListObjects(_ context.Context, _, prefix string) ([]s3.Object, error) {
	f.listed = prefix
	return f.objects, nil
}

// setupSnapshot extends setup with a fake object store, a fixed clock and
// snapshot settings.
func setupSnapshot(t *testing.T, inv *fakeInventory) (*fakeObjectStore, func() string) {
	t.Helper()
	buf := setup(t, inv, nil)

	origStore, origNow, load := newObjectStore, now, loadConfig
	t.Cleanup(func() { newObjectStore, now = origStore, origNow })

	objs := &fakeObjectStore{}
	newObjectStore = func(context.Context, *config.Operator) (ObjectStore, error) { return objs, nil }
	now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 800, time.UTC) }
	loadConfig = func(p string) (*config.Operator, error) {
		cfg, err := load(p)
		if err != nil {
			return nil, err
		}
		cfg.Snapshot = config.Snapshot{
			Endpoint: "http://minio:9000", Bucket: "inv", Prefix: "/cluster-a/",
			AccessKey: "ak", SecretKey: "sk",
		}
		return cfg, nil
	}
	return objs, buf.String
}

func TestExport(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		objs, out := setupSnapshot(t, sampleInventory())

		require.NoError(t, Export(context.Background(), "", false))
		assert.Empty(t, objs.puts)

		var snap Snapshot
		require.NoError(t, yaml.Unmarshal([]byte(out()), &snap))
		assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), snap.TakenAt)
		assert.Len(t, snap.Switches, 2)
		assert.Len(t, snap.Interfaces, 3)
		assert.Equal(t, []NetworkView{{Name: "tenanta", Type: "vnet", Bound: 1}}, snap.Networks)
	})

	t.Run("upload", func(t *testing.T) {
		objs, out := setupSnapshot(t, sampleInventory())

		require.NoError(t, Export(context.Background(), "", true))
		assert.Equal(t, []string{"inv"}, objs.ensured)
		require.Len(t, objs.puts, 1)
		put := objs.puts[0]
		assert.Equal(t, "inv", put.Bucket)
		assert.Equal(t, "cluster-a/20260304T050607Z.yaml", put.Key)
		assert.Equal(t, "application/yaml", put.ContentType)
		assert.Contains(t, string(put.Data), "tenanta")
		assert.Contains(t, out(), "s3://inv/cluster-a/20260304T050607Z.yaml")
	})

	t.Run("bucket failure", func(t *testing.T) {
		objs, _ := setupSnapshot(t, sampleInventory())
		objs.ensureErr = errors.New("access denied")

		err := Export(context.Background(), "", true)
		require.Error(t, err)
		assert.Empty(t, objs.puts)
	})

	t.Run("upload needs snapshot settings", func(t *testing.T) {
		setup(t, sampleInventory(), nil)
		err := Export(context.Background(), "", true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "snapshot configuration")
	})
}

func TestSnapshots(t *testing.T) {
	objs, out := setupSnapshot(t, &fakeInventory{})
	objs.objects = []s3.Object{{Key: "cluster-a/20260304T050607Z.yaml", Size: 512}}

	require.NoError(t, Snapshots(context.Background(), "", FormatTable))
	assert.Equal(t, "cluster-a/", objs.listed)
	assert.Contains(t, out(), "cluster-a/20260304T050607Z.yaml  512")
}

func TestSnapshotKey(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		prefix string
		want   string
	}{
		{"", "20260102T030405Z.yaml"},
		{"a", "a/20260102T030405Z.yaml"},
		{"/a/b/", "a/b/20260102T030405Z.yaml"},
		{"a//b", "a/b/20260102T030405Z.yaml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snapshotKey(tt.prefix, at), tt.prefix)
	}
}
