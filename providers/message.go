package providers

import (
	"encoding/json"
	"strings"
)

// Message role constants shared across adapters.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content entry type tags.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
	ContentTypeFile  = "file"
)

// ImageSource carries inline image data for an image content entry.
type ImageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"mediaType"`
	Data      string `json:"data"`
}

// FileData is a remote file reference (Gemini fileData part).
type FileData struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType"`
}

// ContentEntry is one element of a multipart message: a text fragment, an
// inline image, or a remote file reference.
type ContentEntry struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
	Data   *FileData    `json:"data,omitempty"`
}

// Message is a single conversation turn.
//
// Content holds plain-text content and is set whenever the incoming JSON
// encodes content as a string. ContentParts is populated when content arrives
// as an array (multimodal requests); adapters that support images check it
// first. Both forms round-trip through the custom JSON methods below.
type Message struct {
	Role         string         `json:"-"`
	Content      string         `json:"-"`
	ContentParts []ContentEntry `json:"-"`
}

// MarshalJSON writes content as a string unless ContentParts is set, in which
// case it is encoded as an array.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	w := wire{Role: m.Role}
	var err error
	if len(m.ContentParts) > 0 {
		w.Content, err = json.Marshal(m.ContentParts)
	} else {
		w.Content, err = json.Marshal(m.Content)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts content as either a plain string or an array of
// content entries.
func (m *Message) UnmarshalJSON(b []byte) error {
	type wire struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	m.Role = w.Role
	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(w.Content, &s); err == nil {
		m.Content = s
		return nil
	}
	var parts []ContentEntry
	if err := json.Unmarshal(w.Content, &parts); err != nil {
		return err
	}
	m.ContentParts = parts
	return nil
}

// Text returns the plain-text content of the message: Content when set,
// otherwise the concatenation of the text parts. Image and file entries are
// skipped.
func (m Message) Text() string {
	if len(m.ContentParts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range m.ContentParts {
		if p.Type == ContentTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// HasMedia reports whether the message carries an image or file entry.
func (m Message) HasMedia() bool {
	for _, p := range m.ContentParts {
		if p.Type == ContentTypeImage || p.Type == ContentTypeFile {
			return true
		}
	}
	return false
}

// ContainsMedia reports whether any message in the list carries an image or
// file entry. Adapters without multimodal support gate on this.
func ContainsMedia(messages []Message) bool {
	for _, m := range messages {
		if m.HasMedia() {
			return true
		}
	}
	return false
}

// SplitSystem separates system messages from the conversational turns.
// System content is joined with newlines; adapters feed it to their native
// system channel (or prompt template) as appropriate.
func SplitSystem(messages []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			if t := m.Text(); t != "" {
				parts = append(parts, t)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n"), rest
}
