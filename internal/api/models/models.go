package models

import (
	"time"

	"github.com/smazurov/v4lcap/internal/capture"
	"github.com/smazurov/v4lcap/internal/metrics"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-01-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type DeviceInfo struct {
	DevicePath   string   `json:"device_path" example:"/dev/video0" doc:"Device node"`
	DeviceName   string   `json:"device_name" example:"USB Video" doc:"Card name reported by the driver"`
	DeviceID     string   `json:"device_id" example:"usb-046d_HD_Webcam-video-index0" doc:"Stable device identifier"`
	Driver       string   `json:"driver" example:"uvcvideo" doc:"Kernel driver"`
	BusInfo      string   `json:"bus_info" example:"usb-0000:00:14.0-1" doc:"Bus location"`
	Caps         uint32   `json:"caps" example:"69206017" doc:"Device capability bits"`
	Capabilities []string `json:"capabilities" doc:"Decoded capability names"`
}

type DeviceData struct {
	Devices []DeviceInfo `json:"devices" doc:"Capture devices"`
	Count   int          `json:"count" example:"1" doc:"Number of devices"`
}

type DeviceResponse struct {
	Body DeviceData
}

type FormatsInput struct {
	Path string `query:"path" required:"true" example:"/dev/video0" doc:"Device node to query"`
}

type FormatsData struct {
	DevicePath string               `json:"device_path" example:"/dev/video0" doc:"Device node"`
	Formats    []capture.FormatInfo `json:"formats" doc:"Pixel formats with sizes and frame rates"`
}

type FormatsResponse struct {
	Body FormatsData
}

// Capture status models
type CaptureStatusData struct {
	capture.Status
	Metrics *metrics.DeviceMetrics `json:"metrics,omitempty" doc:"Counters collected for the device"`
}

type CaptureStatusResponse struct {
	Body CaptureStatusData
}

// Log models
type LogsInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"1000" default:"100" doc:"Number of most recent entries"`
}

type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Entry time"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Logging module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Most recent entries, oldest first"`
	Count   int        `json:"count" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Latest frame models
type FrameResponse struct {
	ContentType string `header:"Content-Type"`
	Sequence    uint32 `header:"X-Frame-Sequence"`
	Body        []byte
}
