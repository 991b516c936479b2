package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercagasto/domain"
	"mercagasto/internal/utils/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("B"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.PDF"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	src := NewDirSource(dir, archive)
	ctx := context.Background()

	msgs, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a.PDF", msgs[0].ID)
	assert.Equal(t, "b.pdf", msgs[1].ID)

	data, err := src.Fetch(ctx, msgs[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), data)

	_, err = src.Lookup(ctx, "b.pdf")
	assert.NoError(t, err)
	for _, bad := range []string{"missing.pdf", "notes.txt", "../b.pdf", "sub.pdf"} {
		_, err = src.Lookup(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound, bad)
	}

	_, err = src.Fetch(ctx, domain.InboundMessage{ID: "gone.pdf"})
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	require.NoError(t, src.Archive(ctx, msgs[1], data))
	archived, err := os.ReadFile(filepath.Join(archive, "b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, data, archived)
}

type memoryS3 struct {
	objects map[string][]byte
}

func (m *memoryS3) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryS3) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryS3) UploadFile(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m *memoryS3) DeleteFile(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryS3) GetPublicLinkKey(key string) string { return key }

func TestS3Source(t *testing.T) {
	s3 := &memoryS3{objects: map[string][]byte{
		"inbox/2025/ticket.pdf": []byte("%PDF"),
		"inbox/readme.md":       []byte("#"),
	}}
	src := NewS3Source(s3, "inbox/", "archive/")
	ctx := context.Background()

	msgs, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "inbox/2025/ticket.pdf", msgs[0].ID)
	assert.Equal(t, "ticket.pdf", msgs[0].AttachmentName)

	data, err := src.Fetch(ctx, msgs[0])
	require.NoError(t, err)
	require.NoError(t, src.Archive(ctx, msgs[0], data))
	assert.Equal(t, []byte("%PDF"), s3.objects["archive/ticket.pdf"])

	_, err = src.Lookup(ctx, "elsewhere/ticket.pdf")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	_, err = src.Fetch(ctx, domain.InboundMessage{ID: "inbox/none.pdf"})
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}
