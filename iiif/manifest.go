// Package iiif reads IIIF Presentation documents. Parsing is best effort: a
// document only has to be JSON, every field it cannot understand is left
// empty so views can render placeholders instead of failing.
package iiif

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Document types.
const (
	TypeManifest   = "sc:Manifest"
	TypeCollection = "sc:Collection"
)

// LangString is one value of a possibly multilingual property.
type LangString struct {
	Value    string `json:"@value"`
	Language string `json:"@language,omitempty"`
}

// LangValue holds a property that may be a plain string, a language tagged
// object, or a list mixing both.
type LangValue []LangString

// UnmarshalJSON accepts all three shapes and ignores anything else.
func (v *LangValue) UnmarshalJSON(data []byte) error {
	*v = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
	} else {
		items = []json.RawMessage{data}
	}
	for _, item := range items {
		if ls, ok := parseLangString(item); ok {
			*v = append(*v, ls)
		}
	}
	return nil
}

func parseLangString(raw json.RawMessage) (LangString, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return LangString{Value: s}, true
	}
	var ls LangString
	if err := json.Unmarshal(raw, &ls); err == nil && ls.Value != "" {
		return ls, true
	}
	return LangString{}, false
}

// Pick returns the English value if there is one, otherwise the first value.
func (v LangValue) Pick() string {
	for _, ls := range v {
		if strings.EqualFold(ls.Language, "en") {
			return ls.Value
		}
	}
	if len(v) > 0 {
		return v[0].Value
	}
	return ""
}

// ByLanguage groups values by lowercased language; untagged values use "".
func (v LangValue) ByLanguage() map[string][]string {
	out := make(map[string][]string)
	for _, ls := range v {
		lang := strings.ToLower(ls.Language)
		out[lang] = append(out[lang], ls.Value)
	}
	return out
}

// MetadataEntry is one label/value pair of the metadata block.
type MetadataEntry struct {
	Label LangValue `json:"label"`
	Value LangValue `json:"value"`
}

// Canvas is one view of the item.
type Canvas struct {
	ID     string
	Label  string
	Width  int
	Height int
	Image  string // URL of the first image painted on the canvas
}

// Manifest is the viewable description of one digitized item.
type Manifest struct {
	ID          string
	Type        string
	Label       LangValue
	Description LangValue
	Attribution LangValue
	Logo        string
	Thumbnail   string
	Metadata    []MetadataEntry
	Canvases    []Canvas

	Raw json.RawMessage
}

// Title is the display label, falling back to the id.
func (m Manifest) Title() string {
	if t := m.Label.Pick(); t != "" {
		return t
	}
	if m.ID != "" {
		return m.ID
	}
	return "Untitled manifest"
}

type rawManifest struct {
	ID          string          `json:"@id"`
	Type        string          `json:"@type"`
	Label       LangValue       `json:"label"`
	Description LangValue       `json:"description"`
	Attribution LangValue       `json:"attribution"`
	Logo        json.RawMessage `json:"logo"`
	Thumbnail   json.RawMessage `json:"thumbnail"`
	Metadata    json.RawMessage `json:"metadata"`
	Sequences   []struct {
		Canvases []struct {
			ID     string    `json:"@id"`
			Label  LangValue `json:"label"`
			Width  int       `json:"width"`
			Height int       `json:"height"`
			Images []struct {
				Resource json.RawMessage `json:"resource"`
			} `json:"images"`
		} `json:"canvases"`
	} `json:"sequences"`
}

// Parse reads a manifest. It fails only when data is not a JSON object.
func Parse(data []byte) (Manifest, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Manifest{}, fmt.Errorf("manifest is not a JSON object: %w", err)
	}
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		// Some field has an unexpected shape; keep whatever the probe gives us.
		raw = rawManifest{}
		_ = json.Unmarshal(probe["@id"], &raw.ID)
		_ = json.Unmarshal(probe["@type"], &raw.Type)
		_ = json.Unmarshal(probe["label"], &raw.Label)
		raw.Thumbnail = probe["thumbnail"]
	}
	m := Manifest{
		ID:          raw.ID,
		Type:        raw.Type,
		Label:       raw.Label,
		Description: raw.Description,
		Attribution: raw.Attribution,
		Logo:        resourceURL(raw.Logo),
		Thumbnail:   resourceURL(raw.Thumbnail),
		Raw:         append(json.RawMessage(nil), data...),
	}
	if len(raw.Metadata) > 0 {
		var entries []MetadataEntry
		if err := json.Unmarshal(raw.Metadata, &entries); err == nil {
			m.Metadata = entries
		}
	}
	for _, seq := range raw.Sequences {
		for _, c := range seq.Canvases {
			canvas := Canvas{ID: c.ID, Label: c.Label.Pick(), Width: c.Width, Height: c.Height}
			if len(c.Images) > 0 {
				canvas.Image = resourceURL(c.Images[0].Resource)
			}
			m.Canvases = append(m.Canvases, canvas)
		}
		break // only the default sequence is shown
	}
	if m.Thumbnail == "" && len(m.Canvases) > 0 {
		m.Thumbnail = m.Canvases[0].Image
	}
	return m, nil
}

// resourceURL reads an image-ish reference: a URL string, an object with
// @id, or a list whose first element is one of those.
func resourceURL(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case '{':
		var obj struct {
			ID string `json:"@id"`
		}
		_ = json.Unmarshal(raw, &obj)
		return obj.ID
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return resourceURL(list[0])
		}
	}
	return ""
}
