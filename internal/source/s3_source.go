package source

import (
	"context"
	"errors"
	"path"
	"strings"

	"mercagasto/domain"
	"mercagasto/internal/utils/storage"
)

// S3Source serves PDF objects under an inbox prefix. The message id is the
// object key.
type S3Source struct {
	s3            storage.AwsS3
	inboxPrefix   string
	archivePrefix string
}

func NewS3Source(s3 storage.AwsS3, inboxPrefix, archivePrefix string) *S3Source {
	return &S3Source{s3: s3, inboxPrefix: inboxPrefix, archivePrefix: archivePrefix}
}

func (s *S3Source) List(ctx context.Context) ([]domain.InboundMessage, error) {
	objects, err := s.s3.ListObjects(ctx, s.inboxPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InboundMessage, 0, len(objects))
	for _, obj := range objects {
		if !isPDF(obj.Key) {
			continue
		}
		out = append(out, domain.InboundMessage{ID: obj.Key, AttachmentName: path.Base(obj.Key)})
	}
	return out, nil
}

func (s *S3Source) Lookup(_ context.Context, messageID string) (domain.InboundMessage, error) {
	if !strings.HasPrefix(messageID, s.inboxPrefix) || !isPDF(messageID) {
		return domain.InboundMessage{}, domain.ErrMessageNotFound
	}
	return domain.InboundMessage{ID: messageID, AttachmentName: path.Base(messageID)}, nil
}

func (s *S3Source) Fetch(ctx context.Context, msg domain.InboundMessage) ([]byte, error) {
	data, err := s.s3.Download(ctx, msg.ID)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	return data, err
}

// Archive stores a copy of the attachment under the archive prefix.
func (s *S3Source) Archive(ctx context.Context, msg domain.InboundMessage, data []byte) error {
	key := path.Join(s.archivePrefix, msg.AttachmentName)
	return s.s3.UploadFile(ctx, key, data, "application/pdf")
}
