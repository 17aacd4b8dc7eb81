package imagedup

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the descriptive EXIF, IPTC, and XMP fields extracted
// from image binary data. Presence of any of these fields is the
// "has metadata" quality signal, and the combined text feeds the room
// classifier.
type ImageMetadata struct {
	Title       string // IPTC ObjectName, XMP dc:title
	Description string // EXIF ImageDescription, IPTC Caption, XMP dc:description
	Creator     string // EXIF Artist, IPTC Byline, XMP dc:creator
	Keywords    []string
}

// ClassificationText joins the descriptive fields into one string for
// keyword-based room classification.
func (m *ImageMetadata) ClassificationText() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, 3+len(m.Keywords))
	for _, f := range []string{m.Title, m.Description, m.Creator} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	parts = append(parts, m.Keywords...)
	return strings.Join(parts, " ")
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"ObjectName": true,
		"Caption":    true,
		"Byline":     true,
		"Keywords":   true,
	},
	imagemeta.EXIF: {
		"ImageDescription": true,
		"Artist":           true,
	},
	imagemeta.XMP: {
		"Title":       true,
		"Description": true,
		"Creator":     true,
		"Subject":     true,
	},
}

// ExtractImageMetadata parses descriptive EXIF/IPTC/XMP fields from raw
// image bytes. Returns nil if the data is nil, empty, or carries none of the
// wanted fields. Graceful degradation: never returns an error.
func ExtractImageMetadata(data []byte) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			handleDescriptiveTag(meta, ti, &found)
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}

	return meta
}

// handleDescriptiveTag sets the appropriate ImageMetadata field for a tag.
// Earlier sources win: a field set from EXIF is not overwritten by XMP.
func handleDescriptiveTag(meta *ImageMetadata, ti imagemeta.TagInfo, found *bool) {
	switch ti.Tag {
	case "ObjectName", "Title":
		if s := tagValueString(ti.Value); s != "" && meta.Title == "" {
			meta.Title = s
			*found = true
		}
	case "Caption", "ImageDescription", "Description":
		if s := tagValueString(ti.Value); s != "" && meta.Description == "" {
			meta.Description = s
			*found = true
		}
	case "Byline", "Artist", "Creator":
		if s := tagValueString(ti.Value); s != "" && meta.Creator == "" {
			meta.Creator = s
			*found = true
		}
	case "Keywords", "Subject":
		if kws := tagValueStrings(ti.Value); len(kws) > 0 {
			meta.Keywords = append(meta.Keywords, kws...)
			*found = true
		}
	}
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

// tagValueStrings extracts a string list from a tag value.
func tagValueStrings(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
