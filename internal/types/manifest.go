package types

import (
	"bytes"
	"encoding/json"
)

// Manifest maps category paths to their images, preserving insertion order.
// It is built once by the normalize package and read-only afterwards.
type Manifest struct {
	keys   []string
	images map[string][]ImageRef
}

// ManifestBuilder accumulates a Manifest in document order
type ManifestBuilder struct {
	m *Manifest
}

// NewManifestBuilder returns an empty builder.
func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{m: &Manifest{images: make(map[string][]ImageRef)}}
}

// Add appends images under path. Paths keep the position of their first insertion.
func (b *ManifestBuilder) Add(path string, refs ...ImageRef) {
	if len(refs) == 0 {
		return
	}
	if _, ok := b.m.images[path]; !ok {
		b.m.keys = append(b.m.keys, path)
	}
	b.m.images[path] = append(b.m.images[path], refs...)
}

// Build returns the finished manifest. The builder must not be used afterwards.
func (b *ManifestBuilder) Build() *Manifest {
	m := b.m
	b.m = nil
	return m
}

// Paths returns the category paths in insertion order.
func (m *Manifest) Paths() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Images returns a copy of the images stored under path.
func (m *Manifest) Images(path string) []ImageRef {
	if m == nil {
		return nil
	}
	refs := m.images[path]
	out := make([]ImageRef, len(refs))
	copy(out, refs)
	return out
}

// Len returns the number of category paths.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Counts returns the number of paths and the total number of images.
func (m *Manifest) Counts() Counts {
	c := Counts{TotalCategories: m.Len()}
	if m == nil {
		return c
	}
	for _, k := range m.keys {
		c.TotalImages += len(m.images[k])
	}
	return c
}

// Each calls fn for every path in insertion order.
func (m *Manifest) Each(fn func(path string, images []ImageRef)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.images[k])
	}
}

// MarshalJSON encodes the manifest as a JSON object whose keys keep insertion order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(m.images[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
