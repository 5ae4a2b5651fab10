package cgf

import "strings"

// nodeFixedSize is the size of a 0x823/0x824 node record before its property string.
const nodeFixedSize = 204

func decodeNode(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	n := &Node{}
	var err error
	if n.Name, err = r.String(64); err != nil {
		return nil, err
	}
	ints, err := r.I32s(4)
	if err != nil {
		return nil, err
	}
	n.ObjectID, n.ParentID, n.NumChildren, n.MaterialID = ints[0], ints[1], ints[2], ints[3]

	flags, err := r.Bytes(4)
	if err != nil {
		return nil, err
	}
	n.IsGroupHead = flags[0] != 0
	n.IsGroupMember = flags[1] != 0

	tm, err := r.F32s(16)
	if err != nil {
		return nil, err
	}
	copy(n.Transform[:], tm)

	prs, err := r.F32s(10)
	if err != nil {
		return nil, err
	}
	copy(n.Position[:], prs[0:3])
	copy(n.Rotation[:], prs[3:7])
	copy(n.Scale[:], prs[7:10])

	ctrl, err := r.I32s(4)
	if err != nil {
		return nil, err
	}
	n.PosCtrlID, n.RotCtrlID, n.ScaleCtrlID = ctrl[0], ctrl[1], ctrl[2]

	if propLen := int(ctrl[3]); propLen > 0 {
		if propLen > r.Remaining() {
			propLen = r.Remaining()
		}
		if n.Properties, err = r.String(propLen); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func decodeHelper(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	t, err := r.U32()
	if err != nil {
		return nil, err
	}
	size, err := r.F32s(3)
	if err != nil {
		return nil, err
	}
	h := &Helper{HelperType: HelperType(t)}
	copy(h.Size[:], size)
	return h, nil
}

func decodeMtlName800(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	if err := r.Skip(8); err != nil { // flags, flags2
		return nil, err
	}
	m := &MtlName{}
	var err error
	if m.Name, err = r.String(128); err != nil {
		return nil, err
	}
	if m.PhysicsType, err = r.U32(); err != nil {
		return nil, err
	}
	if m.NumSubMaterials, err = r.I32(); err != nil {
		return nil, err
	}
	ids, err := r.I32s(32)
	if err != nil {
		return nil, err
	}
	if n := int(m.NumSubMaterials); n > 0 && n <= len(ids) {
		m.SubMaterialIDs = ids[:n]
	}
	return m, nil
}

func decodeMtlName802(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	m := &MtlName{}
	var err error
	if m.Name, err = r.String(128); err != nil {
		return nil, err
	}
	if m.NumSubMaterials, err = r.I32(); err != nil {
		return nil, err
	}
	if m.NumSubMaterials < 0 {
		return nil, newError(KindUnsupportedEncoding, "negative sub-material count %d", m.NumSubMaterials)
	}
	if m.SubPhysics, err = r.U32s(int(m.NumSubMaterials)); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeMotionParameters(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	m := &MotionParameters{}
	var err error
	if m.AssetFlags, err = r.U32(); err != nil {
		return nil, err
	}
	if m.Compression, err = r.U32(); err != nil {
		return nil, err
	}
	if m.TicksPerFrame, err = r.I32(); err != nil {
		return nil, err
	}
	if m.SecsPerTick, err = r.F32(); err != nil {
		return nil, err
	}
	if m.Start, err = r.I32(); err != nil {
		return nil, err
	}
	if m.End, err = r.I32(); err != nil {
		return nil, err
	}
	f, err := r.F32s(5)
	if err != nil {
		return nil, err
	}
	m.MoveSpeed, m.TurnSpeed, m.AssetTurn, m.Distance, m.Slope = f[0], f[1], f[2], f[3], f[4]
	return m, nil
}

func decodeTiming(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	t := &Timing{}
	var err error
	if t.SecsPerTick, err = r.F32(); err != nil {
		return nil, err
	}
	if t.TicksPerFrame, err = r.I32(); err != nil {
		return nil, err
	}
	if t.RangeName, err = r.String(32); err != nil {
		return nil, err
	}
	if t.Start, err = r.I32(); err != nil {
		return nil, err
	}
	if t.End, err = r.I32(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeSourceInfo(ctx *DecodeContext) (Chunk, error) {
	b, err := ctx.Reader.Bytes(ctx.Reader.Remaining())
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, p := range strings.Split(string(b), "\x00") {
		if p != "" {
			parts = append(parts, decodeName([]byte(p)))
		}
	}
	return &SourceInfo{Text: strings.Join(parts, "\n")}, nil
}

func decodeExportFlags(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	e := &ExportFlags{}
	var err error
	if e.Flags, err = r.U32(); err != nil {
		return nil, err
	}
	v, err := r.U32s(4)
	if err != nil {
		return nil, err
	}
	copy(e.RCVersion[:], v)
	if e.RCVersionText, err = r.String(16); err != nil {
		return nil, err
	}
	return e, nil
}
