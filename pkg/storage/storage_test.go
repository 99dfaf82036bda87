package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	localStorage, err := NewLocalStorage(LocalConfig{Path: tempDir})
	require.NoError(t, err)

	t.Run("Put", func(t *testing.T) {
		info, err := localStorage.Put(ctx, "pdf/doc-1.pdf", bytes.NewBufferString("%PDF-1.4 body"), "")
		require.NoError(t, err)

		assert.Equal(t, "pdf/doc-1.pdf", info.Key)
		assert.Equal(t, int64(len("%PDF-1.4 body")), info.Size)
		assert.Equal(t, "application/pdf", info.MimeType)

		_, err = os.Stat(filepath.Join(tempDir, "pdf", "doc-1.pdf"))
		assert.NoError(t, err)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		_, err := localStorage.Put(ctx, "html/page.html", bytes.NewBufferString("v1"), "text/html")
		require.NoError(t, err)
		_, err = localStorage.Put(ctx, "html/page.html", bytes.NewBufferString("v2"), "text/html")
		require.NoError(t, err)

		r, err := localStorage.Get(ctx, "html/page.html")
		require.NoError(t, err)
		assert.Equal(t, "v2", readAll(t, r))
	})

	t.Run("Get", func(t *testing.T) {
		r, err := localStorage.Get(ctx, "pdf/doc-1.pdf")
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 body", readAll(t, r))

		_, err = localStorage.Get(ctx, "pdf/missing.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		files, err := localStorage.List(ctx, "pdf/")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "pdf/doc-1.pdf", files[0].Key)

		all, err := localStorage.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := localStorage.Exists(ctx, "pdf/doc-1.pdf")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = localStorage.Exists(ctx, "pdf/non-existent.pdf")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("KeyCannotEscapeRoot", func(t *testing.T) {
		info, err := localStorage.Put(ctx, "../../escape.txt", bytes.NewBufferString("x"), "")
		require.NoError(t, err)
		assert.Equal(t, "escape.txt", info.Key)

		_, err = os.Stat(filepath.Join(tempDir, "escape.txt"))
		assert.NoError(t, err)

		_, err = localStorage.Put(ctx, "..", bytes.NewBufferString("x"), "")
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, localStorage.Delete(ctx, "pdf/doc-1.pdf"))

		exists, err := localStorage.Exists(ctx, "pdf/doc-1.pdf")
		require.NoError(t, err)
		assert.False(t, exists)

		// 删除不存在的文件不报错
		assert.NoError(t, localStorage.Delete(ctx, "pdf/doc-1.pdf"))
	})
}

// TestMinioStorage 测试MinIO存储实现
// 需要设置MINIO_TEST_ENDPOINT并启动MinIO服务
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping MinIO tests")
	}

	ctx := context.Background()
	minioStorage, err := NewMinioStorage(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "docingest-test",
	})
	require.NoError(t, err)

	info, err := minioStorage.Put(ctx, "pdf/minio-doc.pdf", bytes.NewBufferString("minio body"), "")
	require.NoError(t, err)
	assert.Equal(t, "pdf/minio-doc.pdf", info.Key)

	r, err := minioStorage.Get(ctx, "pdf/minio-doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "minio body", readAll(t, r))

	exists, err := minioStorage.Exists(ctx, "pdf/minio-doc.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	files, err := minioStorage.List(ctx, "pdf/")
	require.NoError(t, err)
	assert.NotEmpty(t, files)

	require.NoError(t, minioStorage.Delete(ctx, "pdf/minio-doc.pdf"))
	_, err = minioStorage.Get(ctx, "pdf/minio-doc.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStorageFactory 测试存储工厂
func TestStorageFactory(t *testing.T) {
	s, err := New(Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	s, err = New(Config{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New(Config{Type: "s3"})
	assert.Error(t, err)
}
