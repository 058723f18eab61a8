package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
)

func newTestBlobStorage(t *testing.T, prefix string) *BlobStorage {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })
	return NewBlobStorageFromBucket(bucket, prefix)
}

func newTestFilesystemStorage(t *testing.T) *FilesystemStorage {
	t.Helper()
	s, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func backends(t *testing.T) map[string]func(t *testing.T) Storage {
	t.Helper()
	return map[string]func(t *testing.T) Storage{
		"blob": func(t *testing.T) Storage {
			t.Helper()
			return newTestBlobStorage(t, "")
		},
		"blob-prefixed": func(t *testing.T) Storage {
			t.Helper()
			return newTestBlobStorage(t, "my-prefix")
		},
		"filesystem": func(t *testing.T) Storage {
			t.Helper()
			return newTestFilesystemStorage(t)
		},
	}
}

func TestStorage_PutGet(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "a/b/test-key", []byte("test-data")))

			data, err := s.Get(ctx, "a/b/test-key")
			require.NoError(t, err)
			assert.Equal(t, []byte("test-data"), data)
		})
	}
}

func TestStorage_Put_Overwrite(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "test-key", []byte("original")))
			require.NoError(t, s.Put(ctx, "test-key", []byte("updated")))

			data, err := s.Get(ctx, "test-key")
			require.NoError(t, err)
			assert.Equal(t, []byte("updated"), data)
		})
	}
}

func TestStorage_Put_Empty(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "marker/key", nil))

			meta, err := s.Head(ctx, "marker/key")
			require.NoError(t, err)
			assert.Equal(t, "marker/key", meta.Key)
			assert.Equal(t, int64(0), meta.Size)
		})
	}
}

func TestStorage_Get_NotFound(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStorage(t)

			_, err := s.Get(context.Background(), "nonexistent-key")
			require.Error(t, err)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestStorage_Head(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "images/x.svg/x.svg", []byte("12345")))

			meta, err := s.Head(ctx, "images/x.svg/x.svg")
			require.NoError(t, err)
			assert.Equal(t, int64(5), meta.Size)
			assert.False(t, meta.LastModified.IsZero())

			_, err = s.Head(ctx, "images/y.svg/y.svg")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestStorage_List(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			for _, key := range []string{"posts/b/content", "posts/a/content", "posts/a/labels/x", "images/c.svg/c.svg"} {
				require.NoError(t, s.Put(ctx, key, []byte(key)))
			}

			objects, err := s.List(ctx, "posts/")
			require.NoError(t, err)
			require.Len(t, objects, 3)
			// Should be sorted ascending
			assert.Equal(t, "posts/a/content", objects[0].Key)
			assert.Equal(t, "posts/a/labels/x", objects[1].Key)
			assert.Equal(t, "posts/b/content", objects[2].Key)
			assert.Equal(t, int64(len("posts/a/content")), objects[0].Size)

			objects, err = s.List(ctx, "posts/a/")
			require.NoError(t, err)
			assert.Len(t, objects, 2)

			objects, err = s.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, objects, 4)
		})
	}
}

func TestStorage_List_PartialSegment(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "posts/abc/content", nil))
			require.NoError(t, s.Put(ctx, "posts/abd/content", nil))
			require.NoError(t, s.Put(ctx, "posts/xyz/content", nil))

			objects, err := s.List(ctx, "posts/ab")
			require.NoError(t, err)
			assert.Len(t, objects, 2)
		})
	}
}

func TestStorage_List_Empty(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			objects, err := newStorage(t).List(context.Background(), "nonexistent/")
			require.NoError(t, err)
			assert.Empty(t, objects)
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			require.NoError(t, s.Put(ctx, "a/test-key", []byte("test-data")))
			require.NoError(t, s.Delete(ctx, "a/test-key"))

			_, err := s.Get(ctx, "a/test-key")
			require.Error(t, err)
			assert.True(t, os.IsNotExist(err))

			// Delete should be idempotent - no error for non-existent key
			require.NoError(t, s.Delete(ctx, "a/test-key"))
		})
	}
}

func TestStorage_ConcurrentOperations(t *testing.T) {
	for name, newStorage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStorage(t)

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("concurrent/key-%d", i%3)
					_ = s.Put(ctx, key, []byte("data"))
					_, _ = s.Get(ctx, key)
					_, _ = s.List(ctx, "concurrent/")
				}(i)
			}
			wg.Wait()

			objects, err := s.List(ctx, "concurrent/")
			require.NoError(t, err)
			assert.Len(t, objects, 3)
		})
	}
}

func TestBlobStorage_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bucket.Close() })

	inner := NewBlobStorageFromBucket(bucket, "inner/")
	outer := NewBlobStorageFromBucket(bucket, "")

	require.NoError(t, inner.Put(ctx, "key", []byte("x")))
	require.NoError(t, outer.Put(ctx, "key", []byte("y")))

	objects, err := inner.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	// Keys should not include the bucket prefix
	assert.Equal(t, "key", objects[0].Key)

	objects, err = outer.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}

func TestFilesystemStorage_PrunesEmptyDirectories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFilesystemStorage(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "posts/slug/labels/red", nil))
	require.NoError(t, s.Delete(ctx, "posts/slug/labels/red"))

	_, err = os.Stat(filepath.Join(dir, "posts"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestFilesystemStorage_RejectsEscapingKeys(t *testing.T) {
	s := newTestFilesystemStorage(t)
	err := s.Put(context.Background(), "../outside", []byte("x"))
	assert.Error(t, err)
}
