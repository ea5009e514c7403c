package scan

import (
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedMedia is returned when a file is not an accepted image or video type.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// Media describes the file a scan was started for.
type Media struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// Accepts reports whether contentType is on the profile's allow-list.
// Parameters and case are ignored.
func (p Profile) Accepts(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range p.AcceptedTypes {
		if strings.EqualFold(mt, t) {
			return true
		}
	}
	return false
}

// DetectMedia sniffs the content type of r from its leading bytes rather
// than trusting the client's declared type. Aliases of accepted types are
// reported under the accepted name.
func (p Profile) DetectMedia(name string, r io.Reader) (Media, error) {
	m, err := mimetype.DetectReader(r)
	if err != nil {
		return Media{}, err
	}
	for _, t := range p.AcceptedTypes {
		if m.Is(t) {
			return Media{Name: name, ContentType: t}, nil
		}
	}
	return Media{Name: name, ContentType: m.String()}, ErrUnsupportedMedia
}
