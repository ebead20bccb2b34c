//go:build linux

package v4l2

import "unsafe"

// Layouts shared by every supported architecture.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(v4l2PixFormat{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2Requestbuffers{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2Timecode{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Fract{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(v4l2Captureparm{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(v4l2Outputparm{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2Streamparm{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2FrmsizeDiscrete{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2FrmsizeStepwise{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2FrmivalStepwise{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2Frmivalenum{})]byte{}
)

// v4l2Capability has size 104 bytes.
type v4l2Capability struct {
	driver       [16]byte  // offset 0
	card         [32]byte  // offset 16
	busInfo      [32]byte  // offset 48
	version      uint32    // offset 80
	capabilities uint32    // offset 84
	deviceCaps   uint32    // offset 88
	reserved     [3]uint32 // offset 92
}

// v4l2Fmtdesc has size 64 bytes.
type v4l2Fmtdesc struct {
	index       uint32    // offset 0
	typ         uint32    // offset 4
	flags       uint32    // offset 8
	description [32]byte  // offset 12
	pixelformat uint32    // offset 44
	mbusCode    uint32    // offset 48
	reserved    [3]uint32 // offset 52
}

// v4l2PixFormat has size 48 bytes.
type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Requestbuffers has size 20 bytes.
type v4l2Requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2Timecode has size 16 bytes.
type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// v4l2Fract has size 8 bytes.
type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2Captureparm has size 40 bytes.
type v4l2Captureparm struct {
	capability   uint32
	capturemode  uint32
	timeperframe v4l2Fract
	extendedmode uint32
	readbuffers  uint32
	reserved     [4]uint32
}

// v4l2Outputparm has size 40 bytes.
type v4l2Outputparm struct {
	capability   uint32
	outputmode   uint32
	timeperframe v4l2Fract
	extendedmode uint32
	writebuffers uint32
	reserved     [4]uint32
}

// v4l2Streamparm has size 204 bytes. parm is a union of the capture and
// output parameter blocks selected by typ.
type v4l2Streamparm struct {
	typ  uint32
	parm [200]byte
}

func (p *v4l2Streamparm) capture() *v4l2Captureparm {
	return (*v4l2Captureparm)(unsafe.Pointer(&p.parm[0]))
}

func (p *v4l2Streamparm) output() *v4l2Outputparm {
	return (*v4l2Outputparm)(unsafe.Pointer(&p.parm[0]))
}

// v4l2FrmsizeDiscrete has size 8 bytes.
type v4l2FrmsizeDiscrete struct {
	width  uint32
	height uint32
}

// v4l2FrmsizeStepwise has size 24 bytes.
type v4l2FrmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// v4l2Frmsizeenum has size 44 bytes.
type v4l2Frmsizeenum struct {
	index       uint32    // offset 0
	pixelFormat uint32    // offset 4
	typ         uint32    // offset 8
	union       [24]byte  // offset 12, discrete or stepwise
	reserved    [2]uint32 // offset 36
}

func (e *v4l2Frmsizeenum) discrete() *v4l2FrmsizeDiscrete {
	return (*v4l2FrmsizeDiscrete)(unsafe.Pointer(&e.union[0]))
}

func (e *v4l2Frmsizeenum) stepwise() *v4l2FrmsizeStepwise {
	return (*v4l2FrmsizeStepwise)(unsafe.Pointer(&e.union[0]))
}

// v4l2FrmivalStepwise has size 24 bytes.
type v4l2FrmivalStepwise struct {
	min  v4l2Fract
	max  v4l2Fract
	step v4l2Fract
}

// v4l2Frmivalenum has size 52 bytes.
type v4l2Frmivalenum struct {
	index       uint32    // offset 0
	pixelFormat uint32    // offset 4
	width       uint32    // offset 8
	height      uint32    // offset 12
	typ         uint32    // offset 16
	union       [24]byte  // offset 20, discrete or stepwise
	reserved    [2]uint32 // offset 44
}

func (e *v4l2Frmivalenum) discrete() *v4l2Fract {
	return (*v4l2Fract)(unsafe.Pointer(&e.union[0]))
}

func (e *v4l2Frmivalenum) stepwise() *v4l2FrmivalStepwise {
	return (*v4l2FrmivalStepwise)(unsafe.Pointer(&e.union[0]))
}

func (c *v4l2Capability) toCapability() Capability {
	return Capability{
		Driver:       cstr(c.driver[:]),
		Card:         cstr(c.card[:]),
		BusInfo:      cstr(c.busInfo[:]),
		Version:      c.version,
		Capabilities: c.capabilities,
		DeviceCaps:   c.deviceCaps,
	}
}

func (p *v4l2PixFormat) toPixFormat() PixFormat {
	return PixFormat{
		Width:        p.width,
		Height:       p.height,
		PixelFormat:  p.pixelformat,
		Field:        Field(p.field),
		BytesPerLine: p.bytesperline,
		SizeImage:    p.sizeimage,
		Colorspace:   Colorspace(p.colorspace),
		Priv:         p.priv,
		Flags:        p.flags,
		YCbCrEnc:     p.ycbcrEnc,
		Quantization: p.quantization,
		XferFunc:     p.xferFunc,
	}
}

func fromPixFormat(f PixFormat) v4l2PixFormat {
	return v4l2PixFormat{
		width:        f.Width,
		height:       f.Height,
		pixelformat:  f.PixelFormat,
		field:        uint32(f.Field),
		bytesperline: f.BytesPerLine,
		sizeimage:    f.SizeImage,
		colorspace:   uint32(f.Colorspace),
		priv:         f.Priv,
		flags:        f.Flags,
		ycbcrEnc:     f.YCbCrEnc,
		quantization: f.Quantization,
		xferFunc:     f.XferFunc,
	}
}

func toFract(f v4l2Fract) Fract {
	return Fract{Numerator: f.numerator, Denominator: f.denominator}
}

func fromFract(f Fract) v4l2Fract {
	return v4l2Fract{numerator: f.Numerator, denominator: f.Denominator}
}

// decodeStreamParm reads the union member selected by p.typ.
func decodeStreamParm(p *v4l2Streamparm) StreamParm {
	if BufType(p.typ) == BufTypeVideoOutput {
		o := p.output()
		return OutputParm{
			Capability:   o.capability,
			OutputMode:   o.outputmode,
			TimePerFrame: toFract(o.timeperframe),
			ExtendedMode: o.extendedmode,
			WriteBuffers: o.writebuffers,
		}
	}
	c := p.capture()
	return CaptureParm{
		Capability:   c.capability,
		CaptureMode:  c.capturemode,
		TimePerFrame: toFract(c.timeperframe),
		ExtendedMode: c.extendedmode,
		ReadBuffers:  c.readbuffers,
	}
}

// encodeStreamParm writes sp into the union member matching its direction.
func encodeStreamParm(sp StreamParm) v4l2Streamparm {
	var p v4l2Streamparm
	p.typ = uint32(sp.BufType())
	switch v := sp.(type) {
	case CaptureParm:
		*p.capture() = v4l2Captureparm{
			capability:   v.Capability,
			capturemode:  v.CaptureMode,
			timeperframe: fromFract(v.TimePerFrame),
			extendedmode: v.ExtendedMode,
			readbuffers:  v.ReadBuffers,
		}
	case OutputParm:
		*p.output() = v4l2Outputparm{
			capability:   v.Capability,
			outputmode:   v.OutputMode,
			timeperframe: fromFract(v.TimePerFrame),
			extendedmode: v.ExtendedMode,
			writebuffers: v.WriteBuffers,
		}
	}
	return p
}

func (t *v4l2Timecode) toTimecode() Timecode {
	return Timecode{
		Type:     t.typ,
		Flags:    t.flags,
		Frames:   t.frames,
		Seconds:  t.seconds,
		Minutes:  t.minutes,
		Hours:    t.hours,
		UserBits: t.userbits,
	}
}
