// Package material loads CryEngine .mtl material files and resolves the
// material used by a model.
package material

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

var (
	ErrInvalidMaterial = errors.New("invalid material file")
	ErrNotFound        = errors.New("material not found")
)

// Texture slot names as written in .mtl files.
const (
	MapDiffuse   = "Diffuse"
	MapBumpmap   = "Bumpmap"
	MapSpecular  = "Specular"
	MapEmittance = "Emittance"
	MapOpacity   = "Opacity"
)

// Material is a shader name with its parameters and texture slots.
type Material struct {
	Name      string
	Shader    string
	Flags     uint32
	Diffuse   [3]float32
	Specular  [3]float32
	Emissive  [3]float32
	Shininess float32
	Opacity   float32

	// Textures maps slot name (Diffuse, Bumpmap, ...) to a texture path.
	Textures map[string]string

	SubMaterials []Material
}

// Sub returns sub-material id, or m itself when m has no sub-materials.
func (m *Material) Sub(id int) (*Material, bool) {
	if len(m.SubMaterials) == 0 {
		return m, true
	}
	if id < 0 || id >= len(m.SubMaterials) {
		return nil, false
	}
	return &m.SubMaterials[id], true
}

// Texture returns the texture path for slot, matching case-insensitively.
func (m *Material) Texture(slot string) string {
	if p, ok := m.Textures[slot]; ok {
		return p
	}
	for k, p := range m.Textures {
		if strings.EqualFold(k, slot) {
			return p
		}
	}
	return ""
}

// xmlMaterial matches the <Material> element of .mtl files.
type xmlMaterial struct {
	Name         string        `xml:"Name,attr"`
	Shader       string        `xml:"Shader,attr"`
	MtlFlags     string        `xml:"MtlFlags,attr"`
	Diffuse      string        `xml:"Diffuse,attr"`
	Specular     string        `xml:"Specular,attr"`
	Emissive     string        `xml:"Emissive,attr"`
	Emittance    string        `xml:"Emittance,attr"`
	Shininess    string        `xml:"Shininess,attr"`
	Opacity      string        `xml:"Opacity,attr"`
	Textures     []xmlTexture  `xml:"Textures>Texture"`
	SubMaterials []xmlMaterial `xml:"SubMaterials>Material"`
}

type xmlTexture struct {
	Map  string `xml:"Map,attr"`
	File string `xml:"File,attr"`
}

// Parse decodes a .mtl document. name is used when the root element has
// no Name attribute.
func Parse(data []byte, name string) (*Material, error) {
	var root xmlMaterial
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaterial, err)
	}
	m := root.convert()
	if m.Name == "" {
		m.Name = name
	}
	return &m, nil
}

func (x *xmlMaterial) convert() Material {
	m := Material{
		Name:      x.Name,
		Shader:    x.Shader,
		Flags:     uint32(parseFloat(x.MtlFlags, 0)),
		Diffuse:   parseColor(x.Diffuse, [3]float32{1, 1, 1}),
		Specular:  parseColor(x.Specular, [3]float32{}),
		Emissive:  parseColor(firstNonEmpty(x.Emissive, x.Emittance), [3]float32{}),
		Shininess: parseFloat(x.Shininess, 0),
		Opacity:   parseFloat(x.Opacity, 1),
	}
	if len(x.Textures) > 0 {
		m.Textures = make(map[string]string, len(x.Textures))
		for _, t := range x.Textures {
			if t.Map == "" || t.File == "" {
				continue
			}
			m.Textures[t.Map] = encoding.NormalizePath(t.File)
		}
	}
	for i := range x.SubMaterials {
		m.SubMaterials = append(m.SubMaterials, x.SubMaterials[i].convert())
	}
	return m
}

func parseFloat(s string, def float32) float32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return def
	}
	return float32(f)
}

// parseColor reads "r,g,b" attributes. Extra components are ignored.
func parseColor(s string, def [3]float32) [3]float32 {
	parts := strings.Split(s, ",")
	if len(parts) < 3 {
		return def
	}
	var c [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 32)
		if err != nil {
			return def
		}
		c[i] = float32(f)
	}
	return c
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
