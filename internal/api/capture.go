package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/v4lcap/internal/api/models"
	"github.com/smazurov/v4lcap/internal/metrics"
)

// FrameSource holds the most recent captured frame.
type FrameSource interface {
	Bytes() ([]byte, uint32)
}

func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture-status",
		Method:      http.MethodGet,
		Path:        "/api/capture/status",
		Summary:     "Capture Status",
		Description: "State, negotiated format and counters of the capture session",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.CaptureStatusResponse, error) {
		if s.options.Runner == nil {
			return nil, huma.Error503ServiceUnavailable("No capture session configured")
		}
		st := s.options.Runner.Status()
		return &models.CaptureStatusResponse{
			Body: models.CaptureStatusData{Status: st, Metrics: metrics.Get(st.Device)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-capture-frame",
		Method:      http.MethodGet,
		Path:        "/api/capture/frame",
		Summary:     "Latest Frame",
		Description: "Raw payload of the most recent frame in the negotiated pixel format",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, _ *struct{}) (*models.FrameResponse, error) {
		if s.options.Frames == nil {
			return nil, huma.Error404NotFound("No frame captured yet")
		}
		data, seq := s.options.Frames.Bytes()
		if data == nil {
			return nil, huma.Error404NotFound("No frame captured yet")
		}
		contentType := "application/octet-stream"
		if s.options.Runner != nil && s.options.Runner.Status().PixelFormat == "MJPG" {
			contentType = "image/jpeg"
		}
		return &models.FrameResponse{ContentType: contentType, Sequence: seq, Body: data}, nil
	})
}
