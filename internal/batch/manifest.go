package batch

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/cryconv/pkg/scene"
)

// Manifest is a YAML list of conversion jobs.
//
//	jobs:
//	  - name: barrel
//	    model: objects/props/barrel.cgf
//	  - name: camp
//	    instances:
//	      - model: objects/props/tent.cgf
//	        position: [0, 0, 0]
//	      - model: objects/props/barrel.cgf
//	        position: [3, 1, 0]
//	        rotation: [0, 0, 0.7071, 0.7071]
type Manifest struct {
	Jobs []Job `yaml:"jobs"`
}

// Job produces one output document. Model is shorthand for a single
// instance at the origin.
type Job struct {
	Name       string      `yaml:"name"`
	Model      string      `yaml:"model,omitempty"`
	Material   string      `yaml:"material,omitempty"`
	Animations []string    `yaml:"animations,omitempty"`
	Instances  []Placement `yaml:"instances,omitempty"`
}

// Placement places one model, in source axes.
type Placement struct {
	Name           string      `yaml:"name,omitempty"`
	Model          string      `yaml:"model"`
	Material       string      `yaml:"material,omitempty"`
	Position       [3]float32  `yaml:"position,omitempty"`
	Rotation       *[4]float32 `yaml:"rotation,omitempty"` // quaternion x, y, z, w
	Scale          *[3]float32 `yaml:"scale,omitempty"`
	IgnoreGeometry bool        `yaml:"ignore_geometry,omitempty"`
	IgnoreSkin     bool        `yaml:"ignore_skin,omitempty"`
	Animations     []string    `yaml:"animations,omitempty"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(name string) (*Manifest, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every problem in the manifest. Jobs without a name
// are named after their first model.
func (m *Manifest) Validate() error {
	var err error
	if len(m.Jobs) == 0 {
		return fmt.Errorf("manifest has no jobs")
	}
	seen := make(map[string]int)
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Model != "" && len(j.Instances) > 0 {
			err = multierr.Append(err, fmt.Errorf("job %d: model and instances are exclusive", i))
			continue
		}
		placements := j.Placements()
		if len(placements) == 0 {
			err = multierr.Append(err, fmt.Errorf("job %d: no model", i))
			continue
		}
		for k, s := range placements {
			if strings.TrimSpace(s.Model) == "" {
				err = multierr.Append(err, fmt.Errorf("job %d instance %d: no model", i, k))
			}
		}
		if j.Name == "" {
			j.Name = modelName(placements[0].Model)
		}
		key := strings.ToLower(j.Name)
		if prev, dup := seen[key]; dup {
			err = multierr.Append(err, fmt.Errorf("job %d: name %q already used by job %d", i, j.Name, prev))
			continue
		}
		seen[key] = i
	}
	return err
}

// Placements returns the job's instances, expanding the Model shorthand.
func (j Job) Placements() []Placement {
	if j.Model == "" {
		return j.Instances
	}
	return []Placement{{Model: j.Model, Material: j.Material, Animations: j.Animations}}
}

// SceneInstances converts the job to assembler instances.
func (j Job) SceneInstances(skipAnimations bool) []scene.Instance {
	placements := j.Placements()
	out := make([]scene.Instance, len(placements))
	for i, s := range placements {
		out[i] = scene.Instance{
			Name:           s.Name,
			ModelPath:      s.Model,
			MaterialPath:   s.Material,
			Transform:      s.Transform(),
			IgnoreGeometry: s.IgnoreGeometry,
			IgnoreSkin:     s.IgnoreSkin,
		}
		if !skipAnimations {
			out[i].AnimationPaths = s.Animations
		}
	}
	return out
}

// Transform composes translation, rotation and scale.
func (s Placement) Transform() mgl32.Mat4 {
	m := mgl32.Translate3D(s.Position[0], s.Position[1], s.Position[2])
	if s.Rotation != nil {
		r := s.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		if q.Len() > 0 {
			m = m.Mul4(q.Normalize().Mat4())
		}
	}
	if s.Scale != nil {
		m = m.Mul4(mgl32.Scale3D(s.Scale[0], s.Scale[1], s.Scale[2]))
	}
	return m
}

func modelName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	b := path.Base(p)
	return strings.TrimSuffix(b, path.Ext(b))
}

// ReportEntry is one job outcome in a run report.
type ReportEntry struct {
	Job       string `yaml:"job"`
	Output    string `yaml:"output,omitempty"`
	Success   bool   `yaml:"success"`
	Error     string `yaml:"error,omitempty"`
	Instances int    `yaml:"instances"`
	Decoded   int    `yaml:"decoded"`
	Reused    int    `yaml:"reused"`
	Warnings  int    `yaml:"warnings"`
}

// WriteReport writes the results as YAML.
func WriteReport(w io.Writer, results []Result) error {
	entries := make([]ReportEntry, len(results))
	for i, r := range results {
		entries[i] = ReportEntry{
			Job:       r.Job,
			Output:    r.Output,
			Success:   r.Success,
			Error:     r.Error,
			Instances: r.Stats.Instances,
			Decoded:   r.Stats.Decoded,
			Reused:    r.Stats.Reused,
			Warnings:  r.Warnings,
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return enc.Close()
}
