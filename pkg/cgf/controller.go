package cgf

// Rotation and position key formats of compressed controllers.
const (
	FormatNoCompress      uint8 = 0
	FormatNoCompressQuat  uint8 = 1
	FormatNoCompressVec3  uint8 = 2
	FormatSmallTree48Quat uint8 = 5
	FormatSmallTree64Quat uint8 = 6
)

// Key time formats.
const (
	TimeF32    uint8 = 0
	TimeUInt16 uint8 = 1
	TimeByte   uint8 = 2
)

// Position key layout: positions either reuse the rotation times or
// carry their own time array.
const (
	PositionTimeShared   uint8 = 0
	PositionTimeSeparate uint8 = 1
)

// Controller is a per-bone animation track with times still in ticks.
type Controller struct {
	ControllerID  uint32
	Flags         uint32
	RotationKeys  [][4]float32
	RotationTicks []float32
	PositionKeys  [][3]float32
	PositionTicks []float32
}

// ControllerHeader831 is the fixed part of a compressed controller.
type ControllerHeader831 struct {
	ControllerID     uint32
	Flags            uint32
	NumRotationKeys  uint16
	NumPositionKeys  uint16
	RotationFormat   uint8
	RotationTimeFmt  uint8
	PositionFormat   uint8
	PositionKeysInfo uint8
	PositionTimeFmt  uint8
	TracksAligned    uint8
}

func readControllerHeader831(r *Reader) (ControllerHeader831, error) {
	var h ControllerHeader831
	var err error
	if h.ControllerID, err = r.U32(); err != nil {
		return h, err
	}
	if h.Flags, err = r.U32(); err != nil {
		return h, err
	}
	if h.NumRotationKeys, err = r.U16(); err != nil {
		return h, err
	}
	if h.NumPositionKeys, err = r.U16(); err != nil {
		return h, err
	}
	b, err := r.Bytes(6)
	if err != nil {
		return h, err
	}
	h.RotationFormat, h.RotationTimeFmt, h.PositionFormat = b[0], b[1], b[2]
	h.PositionKeysInfo, h.PositionTimeFmt, h.TracksAligned = b[3], b[4], b[5]
	return h, nil
}

func decodeController831(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	base := r.Pos()
	h, err := readControllerHeader831(r)
	if err != nil {
		return nil, err
	}

	align := func() error {
		if h.TracksAligned == 0 {
			return nil
		}
		if rem := (r.Pos() - base) % 4; rem != 0 {
			return r.Skip(4 - rem)
		}
		return nil
	}

	c := &Controller{ControllerID: h.ControllerID, Flags: h.Flags}

	if n := int(h.NumRotationKeys); n > 0 {
		if c.RotationKeys, err = readRotationKeys(r, n, h.RotationFormat); err != nil {
			return nil, err
		}
		if err := align(); err != nil {
			return nil, err
		}
		if c.RotationTicks, err = readTimeKeys(r, n, h.RotationTimeFmt); err != nil {
			return nil, err
		}
		if err := align(); err != nil {
			return nil, err
		}
	}

	if n := int(h.NumPositionKeys); n > 0 {
		if c.PositionKeys, err = readPositionKeys(r, n, h.PositionFormat); err != nil {
			return nil, err
		}
		if err := align(); err != nil {
			return nil, err
		}
		if h.PositionKeysInfo == PositionTimeSeparate {
			if c.PositionTicks, err = readTimeKeys(r, n, h.PositionTimeFmt); err != nil {
				return nil, err
			}
			if err := align(); err != nil {
				return nil, err
			}
		} else {
			if len(c.RotationTicks) != n {
				return nil, newError(KindUnsupportedEncoding,
					"%d position keys share a rotation time track of %d keys", n, len(c.RotationTicks))
			}
			c.PositionTicks = append([]float32(nil), c.RotationTicks...)
		}
	}
	return c, nil
}

func readRotationKeys(r *Reader, n int, format uint8) ([][4]float32, error) {
	keys := make([][4]float32, n)
	switch format {
	case FormatNoCompress, FormatNoCompressQuat:
		f, err := r.F32s(n * 4)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			copy(keys[i][:], f[i*4:i*4+4])
		}
	case FormatSmallTree48Quat:
		v, err := r.U16s(n * 3)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			keys[i] = DecodeSmallTree48(v[i*3], v[i*3+1], v[i*3+2])
		}
	case FormatSmallTree64Quat:
		v, err := r.U32s(n * 2)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			keys[i] = DecodeSmallTree64(v[i*2], v[i*2+1])
		}
	default:
		return nil, newError(KindUnsupportedEncoding, "rotation format %d", format)
	}
	return keys, nil
}

func readPositionKeys(r *Reader, n int, format uint8) ([][3]float32, error) {
	switch format {
	case FormatNoCompress, FormatNoCompressVec3:
	default:
		return nil, newError(KindUnsupportedEncoding, "position format %d", format)
	}
	f, err := r.F32s(n * 3)
	if err != nil {
		return nil, err
	}
	keys := make([][3]float32, n)
	for i := range keys {
		copy(keys[i][:], f[i*3:i*3+3])
	}
	return keys, nil
}

func readTimeKeys(r *Reader, n int, format uint8) ([]float32, error) {
	out := make([]float32, n)
	switch format {
	case TimeF32:
		f, err := r.F32s(n)
		if err != nil {
			return nil, err
		}
		copy(out, f)
	case TimeUInt16:
		v, err := r.U16s(n)
		if err != nil {
			return nil, err
		}
		for i, t := range v {
			out[i] = float32(t)
		}
	case TimeByte:
		b, err := r.Bytes(n)
		if err != nil {
			return nil, err
		}
		for i, t := range b {
			out[i] = float32(t)
		}
	default:
		return nil, newError(KindUnsupportedEncoding, "time format %d", format)
	}
	return out, nil
}

// controllerKey827Size is time(i32) + position(3xf32) + rotation(4xf32).
const controllerKey827Size = 32

func decodeController827(ctx *DecodeContext) (Chunk, error) {
	r := ctx.Reader
	numKeys, err := r.U32()
	if err != nil {
		return nil, err
	}
	id, err := r.U32()
	if err != nil {
		return nil, err
	}
	if int(numKeys)*controllerKey827Size > r.Remaining() {
		return nil, newError(KindTruncatedBuffer, "%d keys do not fit in %d bytes", numKeys, r.Remaining())
	}

	c := &Controller{
		ControllerID:  id,
		RotationKeys:  make([][4]float32, numKeys),
		RotationTicks: make([]float32, numKeys),
		PositionKeys:  make([][3]float32, numKeys),
		PositionTicks: make([]float32, numKeys),
	}
	for i := 0; i < int(numKeys); i++ {
		t, err := r.I32()
		if err != nil {
			return nil, err
		}
		f, err := r.F32s(7)
		if err != nil {
			return nil, err
		}
		c.RotationTicks[i] = float32(t)
		c.PositionTicks[i] = float32(t)
		copy(c.PositionKeys[i][:], f[0:3])
		copy(c.RotationKeys[i][:], f[3:7])
	}
	return c, nil
}

// TimeBase converts raw key ticks to seconds.
type TimeBase struct {
	TicksPerFrame int32
	SecsPerTick   float32
}

// DefaultTimeBase passes tick values through unchanged.
var DefaultTimeBase = TimeBase{TicksPerFrame: 1, SecsPerTick: 1}

// Seconds converts a tick count to seconds.
func (tb TimeBase) Seconds(ticks float32) float32 {
	return ticks * tb.SecsPerTick
}

// FrameRate returns frames per second, or 0 if unknown.
func (tb TimeBase) FrameRate() float32 {
	if tb.TicksPerFrame <= 0 || tb.SecsPerTick <= 0 {
		return 0
	}
	return 1 / (float32(tb.TicksPerFrame) * tb.SecsPerTick)
}

// FileTimeBase returns the time base recorded in f: MotionParameters
// first, then Timing, else DefaultTimeBase.
func FileTimeBase(f *File) TimeBase {
	if mp, ok := First[*MotionParameters](f); ok && mp.SecsPerTick > 0 && mp.TicksPerFrame > 0 {
		return TimeBase{TicksPerFrame: mp.TicksPerFrame, SecsPerTick: mp.SecsPerTick}
	}
	if t, ok := First[*Timing](f); ok && t.SecsPerTick > 0 && t.TicksPerFrame > 0 {
		return TimeBase{TicksPerFrame: t.TicksPerFrame, SecsPerTick: t.SecsPerTick}
	}
	return DefaultTimeBase
}

// Track is a controller with times in seconds.
type Track struct {
	ControllerID  uint32
	RotationKeys  [][4]float32
	RotationTimes []float32
	PositionKeys  [][3]float32
	PositionTimes []float32
}

// Tracks returns every controller of f converted with the file's time base.
func Tracks(f *File) []Track {
	tb := FileTimeBase(f)
	ctrls := All[*Controller](f)
	tracks := make([]Track, 0, len(ctrls))
	for _, c := range ctrls {
		tracks = append(tracks, Track{
			ControllerID:  c.ControllerID,
			RotationKeys:  c.RotationKeys,
			RotationTimes: toSeconds(c.RotationTicks, tb),
			PositionKeys:  c.PositionKeys,
			PositionTimes: toSeconds(c.PositionTicks, tb),
		})
	}
	return tracks
}

func toSeconds(ticks []float32, tb TimeBase) []float32 {
	if ticks == nil {
		return nil
	}
	out := make([]float32, len(ticks))
	for i, t := range ticks {
		out[i] = tb.Seconds(t)
	}
	return out
}
