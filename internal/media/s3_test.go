package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inputs  []*s3.PutObjectInput
	bodies  [][]byte
	deleted []string
	err     error
}

func (f *fakeStore) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeStore) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func writePNG(t *testing.T, width, height int) string {
	t.Helper()

	img := imaging.New(width, height, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))

	path := filepath.Join(t.TempDir(), "upload.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestUploadKeepsOriginalFormat(t *testing.T) {
	store := &fakeStore{}
	u := newUploader(store, "media", "https://cdn.example.com/", 1<<20)

	result, err := u.Upload(context.Background(), writePNG(t, 64, 32), UploadOptions{Folder: "covers"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.Key, "covers/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+result.Key, result.URL)

	require.Len(t, store.inputs, 1)
	assert.Equal(t, "media", *store.inputs[0].Bucket)
	assert.Equal(t, "image/png", *store.inputs[0].ContentType)
}

func TestUploadSquareNormalisesToJPEG(t *testing.T) {
	store := &fakeStore{}
	u := newUploader(store, "media", "https://cdn.example.com", 1<<20)

	result, err := u.Upload(context.Background(), writePNG(t, 120, 60), UploadOptions{Folder: "avatars", Square: 40})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Key, ".jpg"))
	assert.Equal(t, "image/jpeg", *store.inputs[0].ContentType)

	img, _, err := image.Decode(bytes.NewReader(store.bodies[0]))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestUploadRejectsNonImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not an image"), 0o600))

	store := &fakeStore{}
	_, err := newUploader(store, "media", "https://cdn.example.com", 1<<20).
		Upload(context.Background(), path, UploadOptions{Folder: "covers"})

	assert.ErrorIs(t, err, ErrInvalidImageType)
	assert.Empty(t, store.inputs)
}

func TestUploadRejectsLargeFiles(t *testing.T) {
	_, err := newUploader(&fakeStore{}, "media", "https://cdn.example.com", 16).
		Upload(context.Background(), writePNG(t, 32, 32), UploadOptions{})

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestUploadReportsStoreFailure(t *testing.T) {
	storeErr := errors.New("bucket unavailable")
	_, err := newUploader(&fakeStore{err: storeErr}, "media", "https://cdn.example.com", 1<<20).
		Upload(context.Background(), writePNG(t, 8, 8), UploadOptions{Folder: "covers"})

	assert.ErrorIs(t, err, storeErr)
}

func TestUploadMissingFile(t *testing.T) {
	_, err := newUploader(&fakeStore{}, "media", "https://cdn.example.com", 1<<20).
		Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"), UploadOptions{})

	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.True(t, strings.HasPrefix(objectKey("/avatars/", ".jpg"), "avatars/"))
	assert.False(t, strings.Contains(objectKey("", ".jpg"), "/"))
	assert.NotEqual(t, objectKey("a", ".jpg"), objectKey("a", ".jpg"))
}

func TestDelete(t *testing.T) {
	store := &fakeStore{}
	u := newUploader(store, "media", "https://cdn.example.com", 1<<20)

	require.NoError(t, u.Delete(context.Background(), "avatars/abc.jpg"))
	assert.Equal(t, []string{"avatars/abc.jpg"}, store.deleted)

	store.err = errors.New("access denied")
	err := u.Delete(context.Background(), "avatars/abc.jpg")
	assert.ErrorIs(t, err, store.err)
}
