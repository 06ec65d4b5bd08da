package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/posecap/cache"
	"go.viam.com/posecap/config"
	_ "go.viam.com/posecap/filter/builtin"
	"go.viam.com/posecap/frame"
	"go.viam.com/posecap/logging"
	"go.viam.com/posecap/mapping"
)

const faceConfig = `{
  "cache_size": 6,
  "rig": "face",
  "mapping": {"profile": "face", "mask": ["JawOpen", "EyeClosed"], "orientation": "identity"},
  "filters": [
    {"name": "smooth", "model": "unit_smoothing", "stage": "post", "ordinal": 1, "attributes": {"smoothing": 0.5, "jitter_value": 0.1}},
    {"name": "gain", "model": "amplifier", "ordinal": 0, "enabled": false, "attributes": {"multipliers": {"JawOpen": 1.5}}}
  ]
}`

func TestFromReader(t *testing.T) {
	cfg, err := config.FromReader("face.json", strings.NewReader(faceConfig))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "face.json")
	test.That(t, cfg.CacheSize, test.ShouldEqual, 6)
	test.That(t, cfg.Rig, test.ShouldEqual, frame.Face)
	test.That(t, cfg.Mapping.Mask, test.ShouldResemble, []mapping.Group{mapping.GroupJawOpen, mapping.GroupEyeClosed})
	test.That(t, cfg.Mapping.Orientation, test.ShouldEqual, mapping.OrientationIdentity)
	test.That(t, cfg.Filters, test.ShouldHaveLength, 2)

	gain, ok := cfg.FindFilter("gain")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gain.IsEnabled(), test.ShouldBeFalse)
	smooth, ok := cfg.FindFilter("smooth")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, smooth.Stage.String(), test.ShouldEqual, "post")
	test.That(t, smooth.Attributes.Float64("smoothing", 0), test.ShouldEqual, 0.5)

	profile, err := cfg.Mapping.NewProfile(cfg.Rig)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, profile.Enabled(mapping.GroupJawOpen), test.ShouldBeTrue)
	test.That(t, profile.Enabled(mapping.GroupCheekPuff), test.ShouldBeFalse)
	test.That(t, profile.OrientationMode(), test.ShouldEqual, mapping.OrientationIdentity)

	var buf bytes.Buffer
	test.That(t, config.Write(&buf, cfg), test.ShouldBeNil)
	again, err := config.FromReader("face.json", &buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, cfg)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.FromReader("", strings.NewReader(`{"rig": "skeleton"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.CacheSize, test.ShouldEqual, cache.DefaultSize)
	test.That(t, cfg.Mapping.Profile, test.ShouldEqual, mapping.ProfileSkeleton)
	test.That(t, cfg.Mapping.Orientation, test.ShouldEqual, mapping.OrientationKeep)
	test.That(t, cfg.Filters, test.ShouldBeEmpty)
}

func TestValidationErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		json     string
		contains []string
	}{
		{
			name:     "bad json",
			json:     `{"rig": `,
			contains: []string{"decode"},
		},
		{
			name:     "unknown field",
			json:     `{"rig": "face", "frames_per_second": 30}`,
			contains: []string{"frames_per_second"},
		},
		{
			name:     "unknown rig",
			json:     `{"rig": "hand"}`,
			contains: []string{"hand"},
		},
		{
			name:     "negative cache",
			json:     `{"rig": "face", "cache_size": -2}`,
			contains: []string{"cache_size"},
		},
		{
			name:     "profile for another rig",
			json:     `{"rig": "face", "mapping": {"profile": "skeleton"}}`,
			contains: []string{"mapping", "skeleton"},
		},
		{
			name:     "unknown mask group",
			json:     `{"rig": "face", "mapping": {"mask": ["LeftArm"]}}`,
			contains: []string{"mapping.mask", "LeftArm"},
		},
		{
			name: "several filter errors at once",
			json: `{"rig": "face", "filters": [
				{"name": "a", "model": "unit_smoothing"},
				{"name": "a", "model": "unit_smoothing"},
				{"name": "b", "model": "wobble"},
				{"name": "Result", "model": "mirror"},
				{"model": "mirror"}
			]}`,
			contains: []string{`duplicate filter name "a"`, "wobble", "reserved", "filters.4"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromReader("", strings.NewReader(tc.json))
			test.That(t, err, test.ShouldNotBeNil)
			for _, s := range tc.contains {
				test.That(t, err.Error(), test.ShouldContainSubstring, s)
			}
		})
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posecap.json")
	test.That(t, os.WriteFile(path, []byte(faceConfig), 0o600), test.ShouldBeNil)

	cfg, err := config.Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)

	_, err = config.Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatcher(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "posecap.json")
	test.That(t, os.WriteFile(path, []byte(`{"rig": "face"}`), 0o600), test.ShouldBeNil)

	w, err := config.NewWatcher(path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// an invalid revision is skipped.
	test.That(t, os.WriteFile(path, []byte(`{"rig": "face", "cache_size": -1}`), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, []byte(faceConfig), 0o600), test.ShouldBeNil)

	select {
	case cfg := <-w.Config():
		test.That(t, cfg.CacheSize, test.ShouldEqual, 6)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config revision")
	}
}

func TestWatcherMissingFile(t *testing.T) {
	_, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("POSECAP_TEST_CACHE", "4")
	path := filepath.Join(t.TempDir(), "posecap.json")
	test.That(t, os.WriteFile(path, []byte(`{"rig": "face", "cache_size": ${POSECAP_TEST_CACHE}}`), 0o600), test.ShouldBeNil)

	cfg, err := config.Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.CacheSize, test.ShouldEqual, 4)
}

func TestDiff(t *testing.T) {
	left, err := config.FromReader("", strings.NewReader(faceConfig))
	test.That(t, err, test.ShouldBeNil)
	same, err := config.FromReader("", strings.NewReader(faceConfig))
	test.That(t, err, test.ShouldBeNil)
	diff, err := config.Diff(left, same)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff, test.ShouldBeEmpty)

	right, err := config.FromReader("", strings.NewReader(strings.Replace(faceConfig, `"smooth"`, `"steady"`, 1)))
	test.That(t, err, test.ShouldBeNil)
	diff, err = config.Diff(left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff, test.ShouldNotBeEmpty)
}
