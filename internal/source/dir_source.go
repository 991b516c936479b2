// Package source lists and fetches inbound receipt attachments.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercagasto/domain"
)

// DirSource serves every *.pdf file of a directory. The message id is the
// file name.
type DirSource struct {
	dir        string
	archiveDir string
}

func NewDirSource(dir, archiveDir string) *DirSource {
	return &DirSource{dir: dir, archiveDir: archiveDir}
}

func (s *DirSource) List(ctx context.Context) ([]domain.InboundMessage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox %s: %w", s.dir, err)
	}
	var out []domain.InboundMessage
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !isPDF(e.Name()) {
			continue
		}
		out = append(out, domain.InboundMessage{ID: e.Name(), AttachmentName: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DirSource) Lookup(_ context.Context, messageID string) (domain.InboundMessage, error) {
	if messageID != filepath.Base(messageID) || !isPDF(messageID) {
		return domain.InboundMessage{}, domain.ErrMessageNotFound
	}
	info, err := os.Stat(filepath.Join(s.dir, messageID))
	if err != nil || info.IsDir() {
		return domain.InboundMessage{}, domain.ErrMessageNotFound
	}
	return domain.InboundMessage{ID: messageID, AttachmentName: messageID}, nil
}

func (s *DirSource) Fetch(_ context.Context, msg domain.InboundMessage) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, msg.ID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrMessageNotFound
	}
	return data, err
}

// Archive copies a processed attachment into the archive directory, when
// one is configured.
func (s *DirSource) Archive(_ context.Context, msg domain.InboundMessage, data []byte) error {
	if s.archiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.archiveDir, msg.AttachmentName), data, 0o644)
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
