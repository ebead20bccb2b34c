//go:build linux

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Request number layout, see include/uapi/asm-generic/ioctl.h.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

func ior(typ, nr, size uintptr) uintptr  { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }

// Request numbers, derived from the struct layouts of the running architecture.
var (
	vidiocQuerycap           = ior('V', 0, unsafe.Sizeof(v4l2Capability{}))
	vidiocEnumFmt            = iowr('V', 2, unsafe.Sizeof(v4l2Fmtdesc{}))
	vidiocGFmt               = iowr('V', 4, unsafe.Sizeof(v4l2Format{}))
	vidiocSFmt               = iowr('V', 5, unsafe.Sizeof(v4l2Format{}))
	vidiocReqbufs            = iowr('V', 8, unsafe.Sizeof(v4l2Requestbuffers{}))
	vidiocQuerybuf           = iowr('V', 9, unsafe.Sizeof(v4l2Buffer{}))
	vidiocQbuf               = iowr('V', 15, unsafe.Sizeof(v4l2Buffer{}))
	vidiocDqbuf              = iowr('V', 17, unsafe.Sizeof(v4l2Buffer{}))
	vidiocStreamon           = iow('V', 18, unsafe.Sizeof(int32(0)))
	vidiocStreamoff          = iow('V', 19, unsafe.Sizeof(int32(0)))
	vidiocGParm              = iowr('V', 21, unsafe.Sizeof(v4l2Streamparm{}))
	vidiocSParm              = iowr('V', 22, unsafe.Sizeof(v4l2Streamparm{}))
	vidiocGInput             = ior('V', 38, unsafe.Sizeof(int32(0)))
	vidiocSInput             = iowr('V', 39, unsafe.Sizeof(int32(0)))
	vidiocEnumFramesizes     = iowr('V', 74, unsafe.Sizeof(v4l2Frmsizeenum{}))
	vidiocEnumFrameintervals = iowr('V', 75, unsafe.Sizeof(v4l2Frmivalenum{}))
)

var requestNames = map[uintptr]string{
	vidiocQuerycap:           "VIDIOC_QUERYCAP",
	vidiocEnumFmt:            "VIDIOC_ENUM_FMT",
	vidiocGFmt:               "VIDIOC_G_FMT",
	vidiocSFmt:               "VIDIOC_S_FMT",
	vidiocReqbufs:            "VIDIOC_REQBUFS",
	vidiocQuerybuf:           "VIDIOC_QUERYBUF",
	vidiocQbuf:               "VIDIOC_QBUF",
	vidiocDqbuf:              "VIDIOC_DQBUF",
	vidiocStreamon:           "VIDIOC_STREAMON",
	vidiocStreamoff:          "VIDIOC_STREAMOFF",
	vidiocGParm:              "VIDIOC_G_PARM",
	vidiocSParm:              "VIDIOC_S_PARM",
	vidiocGInput:             "VIDIOC_G_INPUT",
	vidiocSInput:             "VIDIOC_S_INPUT",
	vidiocEnumFramesizes:     "VIDIOC_ENUM_FRAMESIZES",
	vidiocEnumFrameintervals: "VIDIOC_ENUM_FRAMEINTERVALS",
}

func requestName(req uintptr) string {
	if name, ok := requestNames[req]; ok {
		return name
	}
	return "VIDIOC_UNKNOWN"
}

// ioctl issues req on fd and returns the raw errno. A call interrupted by a
// signal is restarted.
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}
