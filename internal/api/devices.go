package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/v4lcap/internal/api/models"
	"github.com/smazurov/v4lcap/pkg/linuxav/v4l2"
)

var capabilityNames = []struct {
	flag uint32
	name string
}{
	{v4l2.CapVideoCapture, "Video Capture"},
	{v4l2.CapVideoOutput, "Video Output"},
	{0x00000004, "Video Overlay"},
	{0x00000010, "VBI Capture"},
	{0x00000020, "VBI Output"},
	{0x00001000, "Multi-planar Video Capture"},
	{0x00002000, "Multi-planar Video Output"},
	{0x00004000, "Multi-planar Memory-to-Memory"},
	{0x00008000, "Memory-to-Memory"},
	{0x00010000, "Tuner"},
	{0x00020000, "Audio"},
	{0x00200000, "Extended Pixel Format"},
	{0x00800000, "Metadata Capture"},
	{v4l2.CapReadWrite, "Read/Write I/O"},
	{0x02000000, "Asynchronous I/O"},
	{v4l2.CapStreaming, "Streaming I/O"},
	{0x08000000, "Metadata Output"},
	{0x10000000, "Touch Device"},
	{0x20000000, "Media Controller I/O"},
}

// translateCapabilities converts V4L2 capability flags to readable strings.
func translateCapabilities(caps uint32) []string {
	out := []string{}
	for _, c := range capabilityNames {
		if caps&c.flag != 0 {
			out = append(out, c.name)
		}
	}
	return out
}

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List V4L2 capture devices",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.DeviceResponse, error) {
		found, err := s.options.Prober.Devices()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to find devices", err)
		}

		list := make([]models.DeviceInfo, len(found))
		for i, d := range found {
			list[i] = models.DeviceInfo{
				DevicePath:   d.DevicePath,
				DeviceName:   d.DeviceName,
				DeviceID:     d.DeviceID,
				Driver:       d.Driver,
				BusInfo:      d.BusInfo,
				Caps:         d.Caps,
				Capabilities: translateCapabilities(d.Caps),
			}
		}
		return &models.DeviceResponse{Body: models.DeviceData{Devices: list, Count: len(list)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-device-formats",
		Method:      http.MethodGet,
		Path:        "/api/devices/formats",
		Summary:     "Device Formats",
		Description: "Enumerate pixel formats, frame sizes and frame rates of a device",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 500},
	}, func(_ context.Context, input *models.FormatsInput) (*models.FormatsResponse, error) {
		formats, err := s.options.Prober.Formats(input.Path)
		if err != nil {
			if errors.Is(err, v4l2.ErrOpen) {
				return nil, huma.Error404NotFound("Device not available", err)
			}
			return nil, huma.Error500InternalServerError("Failed to enumerate formats", err)
		}
		return &models.FormatsResponse{Body: models.FormatsData{DevicePath: input.Path, Formats: formats}}, nil
	})
}
