package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type testOptions struct {
	Config string `help:"Config file path"`

	Device   string        `toml:"capture.device" env:"CAPTURE_DEVICE"`
	Progress bool          `toml:"capture.progressive" env:"CAPTURE_PROGRESSIVE"`
	Frames   int           `toml:"capture.frames" env:"CAPTURE_FRAMES"`
	Width    uint32        `toml:"capture.width" env:"CAPTURE_WIDTH"`
	Timeout  time.Duration `toml:"capture.timeout" env:"CAPTURE_TIMEOUT"`
	Formats  []string      `toml:"capture.formats" env:"CAPTURE_FORMATS"`
	Listen   string        `toml:"server.listen" env:"SERVER_LISTEN"`
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTempConfig(t, `
[capture]
device = "/dev/video2"
progressive = true
frames = 42
width = 1280
timeout = "3s"
formats = ["YUYV", "MJPG"]

[server]
listen = ":9000"
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := testOptions{
		Config:   path,
		Device:   "/dev/video2",
		Progress: true,
		Frames:   42,
		Width:    1280,
		Timeout:  3 * time.Second,
		Formats:  []string{"YUYV", "MJPG"},
		Listen:   ":9000",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("got %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("V4LCAP_CAPTURE_DEVICE", "/dev/video7")
	t.Setenv("V4LCAP_CAPTURE_PROGRESSIVE", "true")
	t.Setenv("V4LCAP_CAPTURE_FRAMES", "123")
	t.Setenv("V4LCAP_CAPTURE_WIDTH", "640")
	t.Setenv("V4LCAP_CAPTURE_TIMEOUT", "250ms")
	t.Setenv("V4LCAP_CAPTURE_FORMATS", "a, b ,c")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Device != "/dev/video7" {
		t.Errorf("Device = %q", opts.Device)
	}
	if !opts.Progress {
		t.Error("Progress = false, want true")
	}
	if opts.Frames != 123 {
		t.Errorf("Frames = %d, want 123", opts.Frames)
	}
	if opts.Width != 640 {
		t.Errorf("Width = %d, want 640", opts.Width)
	}
	if opts.Timeout != 250*time.Millisecond {
		t.Errorf("Timeout = %v, want 250ms", opts.Timeout)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(opts.Formats, want) {
		t.Errorf("Formats = %v, want %v", opts.Formats, want)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeTempConfig(t, `
[capture]
device = "/dev/video1"
frames = 100
`)
	t.Setenv("V4LCAP_CAPTURE_DEVICE", "/dev/video9")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Device != "/dev/video9" {
		t.Errorf("Device = %q, want env override", opts.Device)
	}
	if opts.Frames != 100 {
		t.Errorf("Frames = %d, want 100 from TOML", opts.Frames)
	}
}

func TestLoadConfigUnprefixedEnvIgnored(t *testing.T) {
	t.Setenv("CAPTURE_DEVICE", "/dev/video5")

	opts := &testOptions{Device: "/dev/video0"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.Device != "/dev/video0" {
		t.Errorf("Device = %q, want unchanged", opts.Device)
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		if result := getNestedValue(data, test.path); result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	type target struct {
		S  string
		B  bool
		I  int
		U  uint32
		F  float64
		D  time.Duration
		SS []string
	}

	s := &target{}
	v := reflect.ValueOf(s).Elem()

	setFieldValue(v.FieldByName("S"), "text")
	setFieldValue(v.FieldByName("B"), true)
	setFieldValue(v.FieldByName("I"), int64(42))
	setFieldValue(v.FieldByName("U"), int64(7))
	setFieldValue(v.FieldByName("F"), 2.5)
	setFieldValue(v.FieldByName("D"), "1m")
	setFieldValue(v.FieldByName("SS"), []any{"a", "b"})

	want := target{S: "text", B: true, I: 42, U: 7, F: 2.5, D: time.Minute, SS: []string{"a", "b"}}
	if !reflect.DeepEqual(*s, want) {
		t.Errorf("got %+v, want %+v", *s, want)
	}

	// Integer durations are seconds; negative values never reach unsigned fields.
	setFieldValue(v.FieldByName("D"), int64(5))
	setFieldValue(v.FieldByName("U"), int64(-1))
	if s.D != 5*time.Second {
		t.Errorf("D = %v, want 5s", s.D)
	}
	if s.U != 7 {
		t.Errorf("U = %d, want unchanged 7", s.U)
	}

	// Mismatched types are ignored.
	setFieldValue(v.FieldByName("I"), "not a number")
	if s.I != 42 {
		t.Errorf("I = %d, want unchanged 42", s.I)
	}
}

func TestSetFieldValueFromString(t *testing.T) {
	type target struct {
		S  string
		B  bool
		I  int
		U  uint
		D  time.Duration
		SS []string
	}

	s := &target{}
	v := reflect.ValueOf(s).Elem()

	setFieldValueFromString(v.FieldByName("S"), "text")
	setFieldValueFromString(v.FieldByName("B"), "true")
	setFieldValueFromString(v.FieldByName("I"), "-3")
	setFieldValueFromString(v.FieldByName("U"), "9")
	setFieldValueFromString(v.FieldByName("D"), "2s")
	setFieldValueFromString(v.FieldByName("SS"), " x , y ")

	want := target{S: "text", B: true, I: -3, U: 9, D: 2 * time.Second, SS: []string{"x", "y"}}
	if !reflect.DeepEqual(*s, want) {
		t.Errorf("got %+v, want %+v", *s, want)
	}

	setFieldValueFromString(v.FieldByName("B"), "maybe")
	setFieldValueFromString(v.FieldByName("U"), "-1")
	if !s.B || s.U != 9 {
		t.Errorf("unparsable values changed fields: %+v", *s)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "nonexistent.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeTempConfig(t, "[capture\ninvalid toml syntax\n")
	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":         "port",
		"LoggingLevel": "logging-level",
		"SaveDir":      "save-dir",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantLevel   string
		wantFormat  string
		wantModules map[string]string
	}{
		{
			name:        "defaults without logging table",
			content:     "[capture]\ndevice = \"/dev/video0\"\n",
			wantLevel:   "info",
			wantFormat:  "text",
			wantModules: map[string]string{},
		},
		{
			name: "flat module keys",
			content: `
[logging]
level = "warn"
format = "json"
capture = "debug"
api = "error"
`,
			wantLevel:   "warn",
			wantFormat:  "json",
			wantModules: map[string]string{"capture": "debug", "api": "error"},
		},
		{
			name: "modules table",
			content: `
[logging]
level = "debug"

[logging.modules]
capture = "warn"
metrics = "info"
`,
			wantLevel:   "debug",
			wantFormat:  "text",
			wantModules: map[string]string{"capture": "warn", "metrics": "info"},
		},
		{
			name:        "invalid toml falls back",
			content:     "[logging\n",
			wantLevel:   "info",
			wantFormat:  "text",
			wantModules: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadLoggingConfig(writeTempConfig(t, tt.content))
			if cfg.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", cfg.Format, tt.wantFormat)
			}
			if !reflect.DeepEqual(cfg.Modules, tt.wantModules) {
				t.Errorf("Modules = %v, want %v", cfg.Modules, tt.wantModules)
			}
		})
	}

	if cfg := LoadLoggingConfig(""); cfg.Level != "info" {
		t.Errorf("empty path Level = %q, want info", cfg.Level)
	}
}
