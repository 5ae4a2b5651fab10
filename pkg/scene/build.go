package scene

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/pkg/cgf"
	xmath "github.com/Faultbox/cryconv/pkg/math"
)

// protoBuilder turns one decoded model into a prototype.
type protoBuilder struct {
	a        *Assembler
	f        *cgf.File
	file     string
	inst     Instance
	p        *prototype
	material *resolvedMaterial

	meshes map[int32]int  // mesh chunk id -> graph mesh, -1 if unusable
	joints map[uint32]int // controller id -> prototype node
	skinOf map[int]bool   // graph mesh -> has skinning attributes

	skinned   bool
	numJoints int
}

func (b *protoBuilder) addSkeleton() {
	cb, ok := cgf.First[*cgf.CompiledBones](b.f)
	if !ok || len(cb.Bones) == 0 {
		return
	}
	s, err := cgf.NewSkeleton(cb)
	if err != nil {
		b.a.warnf(b.file, cgf.KindCorruptSkeleton, "skeleton dropped: %v", err)
		return
	}

	base := len(b.p.nodes)
	skin := Skin{
		Name:                b.p.name,
		Joints:              make([]int, s.Len()),
		InverseBindMatrices: make([]mgl32.Mat4, s.Len()),
	}
	for i, bone := range s.Bones {
		n := NewNode(bone.Name, s.LocalMatrix(i))
		n.IsJoint = true
		n.ControllerID = bone.ControllerID
		b.p.nodes = append(b.p.nodes, n)
		if _, dup := b.joints[bone.ControllerID]; !dup {
			b.joints[bone.ControllerID] = base + i
		}
		skin.Joints[i] = base + i
		skin.InverseBindMatrices[i] = s.InverseBindMatrix(i)
	}
	for i, kids := range s.Children() {
		b.p.nodes[base+i].Children = offset(kids, base)
	}
	roots := s.Roots()
	skin.Skeleton = base + roots[0]
	for _, r := range roots {
		b.p.roots = append(b.p.roots, base+r)
	}
	b.p.skins = append(b.p.skins, skin)
	b.skinned = true
	b.numJoints = s.Len()
}

// addNodes emits one node per Node chunk, dropping LOD subtrees.
func (b *protoBuilder) addNodes(entries []nodeEntry) {
	n := len(entries)
	index := make(map[int32]int, n)
	for i, e := range entries {
		index[e.id] = i
	}

	parent := make([]int, n)
	for i, e := range entries {
		parent[i] = -1
		pid := e.node.ParentID
		if pid == -1 {
			continue
		}
		p, ok := index[pid]
		if !ok || p == i {
			b.a.warnf(b.file, cgf.KindMissingReference, "node %q parent id %d not found", e.node.Name, pid)
			continue
		}
		parent[i] = p
	}
	for i := range entries {
		for j, steps := i, 0; parent[j] >= 0; j = parent[j] {
			if steps++; steps > n {
				b.a.warnf(b.file, cgf.KindMissingReference, "node %q is part of a parent cycle", entries[i].node.Name)
				parent[i] = -1
				break
			}
		}
	}

	skip := make([]bool, n)
	if !b.a.opts.KeepLODs {
		for i := range entries {
			for j, steps := i, 0; j >= 0 && steps <= n; j, steps = parent[j], steps+1 {
				if IsLOD(entries[j].node.Name) {
					skip[i] = true
					break
				}
			}
		}
	}

	nodeIdx := make([]int, n)
	for i, e := range entries {
		nodeIdx[i] = -1
		if skip[i] {
			continue
		}
		node := NewNode(e.node.Name, xmath.SwapMat4(xmath.RowMajor44(e.node.Transform)))
		if !b.inst.IgnoreGeometry {
			if _, ok := cgf.Get[*cgf.Mesh](b.f, e.node.ObjectID); ok {
				if m, ok := b.mesh(e.node.ObjectID, e.node.Name); ok {
					node.Mesh = m
					if b.skinOf[m] {
						node.Skin = 0
					}
				}
			}
		}
		nodeIdx[i] = len(b.p.nodes)
		b.p.nodes = append(b.p.nodes, node)
	}

	for i := range entries {
		if nodeIdx[i] < 0 {
			continue
		}
		if p := parent[i]; p >= 0 && nodeIdx[p] >= 0 {
			pn := &b.p.nodes[nodeIdx[p]]
			pn.Children = append(pn.Children, nodeIdx[i])
			continue
		}
		b.p.roots = append(b.p.roots, nodeIdx[i])
	}
}

// addBareMeshes handles files without Node chunks (.chr, .skin): every
// mesh chunk becomes a root node.
func (b *protoBuilder) addBareMeshes() {
	if b.inst.IgnoreGeometry {
		return
	}
	var ids []int32
	for _, e := range b.f.Header.Entries {
		if _, ok := cgf.Get[*cgf.Mesh](b.f, e.ID); ok {
			ids = append(ids, e.ID)
		}
	}
	for k, id := range ids {
		name := b.p.name
		if len(ids) > 1 {
			name += "_" + strconv.Itoa(k)
		}
		m, ok := b.mesh(id, name)
		if !ok {
			continue
		}
		node := NewNode(name, mgl32.Ident4())
		node.Mesh = m
		if b.skinOf[m] {
			node.Skin = 0
		}
		b.p.roots = append(b.p.roots, len(b.p.nodes))
		b.p.nodes = append(b.p.nodes, node)
	}
}

// mesh decodes mesh chunk id into the graph once per prototype.
func (b *protoBuilder) mesh(id int32, name string) (int, bool) {
	if idx, ok := b.meshes[id]; ok {
		return idx, idx >= 0
	}
	b.meshes[id] = -1

	m, _ := cgf.Get[*cgf.Mesh](b.f, id)
	if m.NumVertices == 0 && m.SubsetsID == 0 {
		// Placeholder mesh whose geometry lives in another file.
		return -1, false
	}
	prims, warns, err := cgf.DecodeGeometry(b.f, id)
	for _, w := range warns {
		b.a.warn(b.file, w)
	}
	if err != nil {
		b.a.warnf(b.file, cgf.KindMissingReference, "mesh %q omitted: %v", name, err)
		return -1, false
	}
	if len(prims) == 0 {
		return -1, false
	}

	out := Mesh{Name: name, Primitives: make([]Primitive, 0, len(prims))}
	withJoints := 0
	for _, p := range prims {
		sp := b.primitive(p)
		if sp.Joints != nil {
			withJoints++
		}
		out.Primitives = append(out.Primitives, sp)
	}
	// A skinned node needs joints on every primitive of its mesh.
	skinned := withJoints > 0 && withJoints == len(out.Primitives)
	if withJoints > 0 && !skinned {
		b.a.warnf(b.file, cgf.KindMissingReference,
			"mesh %q: %d of %d primitives lost skinning, mesh left unskinned",
			name, len(out.Primitives)-withJoints, len(out.Primitives))
		for i := range out.Primitives {
			out.Primitives[i].Joints, out.Primitives[i].Weights = nil, nil
		}
	}
	g := &b.a.graph
	g.Meshes = append(g.Meshes, out)
	idx := len(g.Meshes) - 1
	b.meshes[id] = idx
	b.skinOf[idx] = skinned
	return idx, true
}

// primitive converts decoded geometry to target axes.
func (b *protoBuilder) primitive(p cgf.Primitive) Primitive {
	out := Primitive{
		Indices:   p.Indices,
		Positions: xmath.SwapVec3s(p.Positions),
		Normals:   xmath.SwapVec3s(p.Normals),
		TexCoords: p.TexCoords,
		Tangents:  xmath.SwapTangents(p.Tangents),
		Colors:    p.Colors,
		Colors2:   p.Colors2,
		Material:  b.a.materialIndex(b.file, b.material, p.MaterialID),
	}
	if !b.skinned || p.Joints == nil {
		return out
	}
	for v, joints := range p.Joints {
		for k, j := range joints {
			if p.Weights[v][k] > 0 && int(j) >= b.numJoints {
				b.a.warnf(b.file, cgf.KindMissingReference,
					"vertex %d references joint %d of %d, skinning dropped", v, j, b.numJoints)
				return out
			}
		}
	}
	out.Joints = p.Joints
	out.Weights = p.Weights
	return out
}

// addAnimation loads one animation file and binds its controllers to
// joints by controller id.
func (b *protoBuilder) addAnimation(animPath string) {
	if len(b.joints) == 0 {
		b.a.warnf(animPath, cgf.KindMissingReference, "animation skipped: %s has no skeleton", b.file)
		return
	}
	data, err := b.a.src.ReadFile(animPath)
	if err != nil {
		b.a.warnf(animPath, cgf.KindMissingReference, "animation skipped: %v", err)
		return
	}
	f, err := cgf.Decode(data, cgf.Options{Registry: b.a.opts.Registry, Logger: b.a.log, Name: animPath})
	if err != nil {
		kind, _ := cgf.KindOf(err)
		b.a.warnf(animPath, kind, "animation skipped: %v", err)
		return
	}
	b.a.warnings = append(b.a.warnings, f.Warnings...)

	clip := Animation{Name: baseName(animPath)}
	unmatched := 0
	for _, t := range cgf.Tracks(f) {
		node, ok := b.joints[t.ControllerID]
		if !ok {
			unmatched++
			continue
		}
		if len(t.RotationKeys) > 0 && len(t.RotationKeys) == len(t.RotationTimes) {
			rots := make([][4]float32, len(t.RotationKeys))
			for i, q := range t.RotationKeys {
				rots[i] = xmath.NormalizeQuat(xmath.SwapQuat(q))
			}
			clip.Channels = append(clip.Channels, Channel{
				ControllerID: t.ControllerID,
				Node:         node,
				Path:         PathRotation,
				Times:        t.RotationTimes,
				Rotations:    rots,
			})
		}
		if len(t.PositionKeys) > 0 && len(t.PositionKeys) == len(t.PositionTimes) {
			pos := make([][3]float32, len(t.PositionKeys))
			for i, v := range t.PositionKeys {
				pos[i] = xmath.SwapVec3(v)
			}
			clip.Channels = append(clip.Channels, Channel{
				ControllerID: t.ControllerID,
				Node:         node,
				Path:         PathTranslation,
				Times:        t.PositionTimes,
				Translations: pos,
			})
		}
	}
	if unmatched > 0 {
		b.a.log.Debug("controllers without joint",
			zap.String("file", animPath),
			zap.Int("count", unmatched))
	}
	if len(clip.Channels) == 0 {
		b.a.warnf(animPath, cgf.KindMissingReference, "animation skipped: no controller matches a joint of %s", b.file)
		return
	}
	b.p.clips = append(b.p.clips, clip)
}
