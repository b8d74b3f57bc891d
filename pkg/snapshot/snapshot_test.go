package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/vango-dev/keyed/internal/errors"
)

// fakeS3 keeps objects in memory and answers like the S3 API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	mem := NewMemoryStore()
	t.Cleanup(func() { mem.Close() })
	return map[string]Store{
		"memory": mem,
		"s3":     NewS3Store(newFakeS3(), "bucket", "keyed/"),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "s1")
			assert.True(t, IsNotFound(err), "Load of a missing session: %v", err)

			require.NoError(t, store.Save(ctx, "s1", []string{"a", "b", "c"}))
			keys, err := store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, keys)

			require.NoError(t, store.Save(ctx, "s1", []string{"c"}))
			keys, err = store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, keys)

			require.NoError(t, store.Delete(ctx, "s1"))
			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Load(ctx, "s1")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestStoreEmptyList(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "empty", nil))
			keys, err := store.Load(ctx, "empty")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestMemoryStoreCopiesKeys(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	keys := []string{"a", "b"}
	require.NoError(t, store.Save(ctx, "s", keys))
	keys[0] = "mutated"

	got, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got[1] = "mutated"
	again, _ := store.Load(ctx, "s")
	assert.Equal(t, []string{"a", "b"}, again)
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore(WithTTL(time.Minute), WithCleanupInterval(time.Hour))
	defer store.Close()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", []string{"a"}))
	now = now.Add(30 * time.Second)
	_, err := store.Load(ctx, "s")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Load(ctx, "s")
	assert.True(t, IsNotFound(err))

	assert.Equal(t, 1, store.Len())
	store.cleanup()
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err := store.Save(context.Background(), "s", []string{"a"})
	assert.True(t, kerrors.HasCode(err, "E271"))
	assert.ErrorIs(t, err, errStoreClosed)
}

func TestS3StoreLayout(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "sessions/")
	require.NoError(t, store.Save(context.Background(), "abc", []string{"x"}))

	_, ok := fake.objects["bucket/sessions/abc"]
	assert.True(t, ok, "object written under prefix")
	assert.Equal(t, contentType, fake.types["sessions/abc"])
}

func TestS3StoreFailures(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake, "bucket", "")
	ctx := context.Background()

	boom := errors.New("connection reset")
	fake.failPut = boom
	err := store.Save(ctx, "s", []string{"a"})
	assert.True(t, kerrors.HasCode(err, "E271"))
	assert.ErrorIs(t, err, boom)

	fake.objects["bucket/corrupt"] = []byte{0x7F}
	_, err = store.Load(ctx, "corrupt")
	assert.True(t, kerrors.HasCode(err, "E271"))
	assert.False(t, IsNotFound(err))
}
