package capture

import "github.com/smazurov/v4lcap/pkg/linuxav/v4l2"

// FormatInfo describes one pixel format a device offers.
type FormatInfo struct {
	FourCC      string     `json:"fourcc" example:"YUYV" doc:"Pixel format code"`
	Description string     `json:"description" example:"YUYV 4:2:2" doc:"Driver description"`
	Compressed  bool       `json:"compressed" doc:"Compressed format"`
	Emulated    bool       `json:"emulated" doc:"Converted in software by the driver"`
	Sizes       []SizeInfo `json:"sizes" doc:"Supported frame sizes"`
}

// SizeInfo is a frame size with the frame rates offered at that size.
type SizeInfo struct {
	Width  uint32    `json:"width" example:"1280"`
	Height uint32    `json:"height" example:"720"`
	FPS    []float64 `json:"fps" doc:"Supported frame rates"`
}

// Prober discovers capture devices and their formats.
type Prober interface {
	Devices() ([]v4l2.DeviceInfo, error)
	Formats(path string) ([]FormatInfo, error)
}

func describe(desc v4l2.FormatDesc) FormatInfo {
	return FormatInfo{
		FourCC:      v4l2.FormatFourCC(desc.PixelFormat),
		Description: desc.Description,
		Compressed:  desc.Compressed(),
		Emulated:    desc.Emulated(),
		Sizes:       []SizeInfo{},
	}
}

func rates(periods []v4l2.Fract) []float64 {
	out := make([]float64, 0, len(periods))
	for _, p := range periods {
		if fps := p.FPS(); fps > 0 {
			out = append(out, fps)
		}
	}
	return out
}
