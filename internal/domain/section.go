package domain

import (
	"encoding/json"
	"fmt"
)

// Section is a single typed content block. Its kind is the kind of its Content.
type Section struct {
	ID       string
	Title    string
	Content  Content
	VideoURL string
	AudioURL string
}

type sectionHeader struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Kind     SectionKind `json:"kind"`
	VideoURL string      `json:"videoUrl,omitempty"`
	AudioURL string      `json:"audioUrl,omitempty"`
}

// Kind returns the section's kind tag.
func (s Section) Kind() SectionKind {
	if s.Content == nil {
		return ""
	}
	return s.Content.Kind()
}

// Generic reports whether the section fell back to generic text handling.
func (s Section) Generic() bool {
	_, ok := s.Content.(GenericContent)
	return ok || s.Content == nil
}

// MarshalJSON flattens the header and payload into a single object.
func (s Section) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if s.Content != nil {
		raw, err := json.Marshal(s.Content)
		if err != nil {
			return nil, fmt.Errorf("marshal %s section %s: %w", s.Kind(), s.ID, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("flatten %s section %s: %w", s.Kind(), s.ID, err)
		}
	}

	header, err := json.Marshal(sectionHeader{
		ID:       s.ID,
		Title:    s.Title,
		Kind:     s.Kind(),
		VideoURL: s.VideoURL,
		AudioURL: s.AudioURL,
	})
	if err != nil {
		return nil, err
	}
	headerFields := map[string]json.RawMessage{}
	if err := json.Unmarshal(header, &headerFields); err != nil {
		return nil, err
	}
	for k, v := range headerFields {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON dispatches on the kind tag; unknown kinds become GenericContent.
func (s *Section) UnmarshalJSON(data []byte) error {
	var h sectionHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	content, err := decodeContent(h.Kind, data)
	if err != nil {
		return fmt.Errorf("decode %s section %s: %w", h.Kind, h.ID, err)
	}
	*s = Section{
		ID:       h.ID,
		Title:    h.Title,
		Content:  content,
		VideoURL: h.VideoURL,
		AudioURL: h.AudioURL,
	}
	return nil
}
