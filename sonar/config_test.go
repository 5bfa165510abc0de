package sonar

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "sonar.json")
	err := os.WriteFile(good, []byte(`{"fov": 60, "r_min": 0.1, "r_max": 5.0}`), 0o644)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := LoadConfiguration(good)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.FOV, test.ShouldEqual, 60.0)
	test.That(t, cfg.RMin, test.ShouldEqual, 0.1)
	test.That(t, cfg.RMax, test.ShouldEqual, 5.0)

	bad := filepath.Join(dir, "bad.json")
	err = os.WriteFile(bad, []byte(`{"fov": 60, "r_min": 5.0, "r_max": 0.1}`), 0o644)
	test.That(t, err, test.ShouldBeNil)
	_, err = LoadConfiguration(bad)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadConfiguration(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
