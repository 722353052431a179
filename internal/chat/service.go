// Package chat writes conversation messages for an emergency alert,
// including media attachments uploaded to object storage.
package chat

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/store"
	stores "JevanRaksha/pkg/storage"
)

const (
	imagePlaceholder = "📷 Image"
	filePlaceholder  = "📎 File"
)

type Service struct {
	st    store.Store
	media stores.Store
}

func NewService(st store.Store, media stores.Store) *Service {
	return &Service{st: st, media: media}
}

// Send appends a text message to an alert's conversation.
func (s *Service) Send(ctx context.Context, alertID, senderID, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("empty message")
	}
	return s.insert(ctx, map[string]interface{}{
		"alert_id":  alertID,
		"sender_id": senderID,
		"message":   body,
	})
}

// SendMedia uploads an attachment and appends a message linking to it. The
// message body is a typed placeholder; receivers resolve the attachment from
// the media URL.
func (s *Service) SendMedia(ctx context.Context, alertID, senderID, filename, contentType string, r io.Reader, size int64) (*models.Message, error) {
	key := "chat-media/" + alertID + "/" + uuid.NewString() + path.Ext(filename)
	if err := s.media.Write(ctx, key, r, size, contentType); err != nil {
		return nil, errors.Wrap(err, "upload attachment")
	}

	body := filePlaceholder
	if strings.HasPrefix(contentType, "image/") {
		body = imagePlaceholder
	}
	return s.insert(ctx, map[string]interface{}{
		"alert_id":  alertID,
		"sender_id": senderID,
		"message":   body,
		"media_url": s.media.PublicURL(key),
	})
}

func (s *Service) insert(ctx context.Context, row map[string]interface{}) (*models.Message, error) {
	rows, err := s.st.Insert(ctx, "messages", row)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	if len(rows) == 0 {
		return nil, errors.New("store returned no message row")
	}
	var msg models.Message
	if err := json.Unmarshal(rows[0], &msg); err != nil {
		return nil, errors.Wrap(err, "decode message row")
	}
	return &msg, nil
}

var imageURLPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)

// IsImageURL reports whether a media URL should render inline as an image.
// Anything else, malformed URLs included, renders as a generic attachment.
func IsImageURL(u string) bool {
	return imageURLPattern.MatchString(u)
}
