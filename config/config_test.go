package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const fixture = `
[Geofence]
points_x = [0.0, 1.0, 1.0, 0.0, 0.0]
points_y = [0.0, 0.0, 1.0, 1.0, 0.0]

[Navigator]
interval_ms = 50
waypoint_threshold = 0.05
label = "north loop"
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "configuration.toml")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestConfigurationAccessors(t *testing.T) {
	Convey("Given a loaded configuration file", t, func() {
		conf, err := Load(writeFixture(t))
		So(err, ShouldBeNil)

		Convey("required accessors return typed values", func() {
			ms, err := conf.GetInt("Navigator", "interval_ms")
			So(err, ShouldBeNil)
			So(ms, ShouldEqual, 50)

			label, err := conf.GetString("Navigator", "label")
			So(err, ShouldBeNil)
			So(label, ShouldEqual, "north loop")

			xs, err := conf.GetFloatList("Geofence", "points_x")
			So(err, ShouldBeNil)
			So(xs, ShouldResemble, []float64{0.0, 1.0, 1.0, 0.0, 0.0})
		})

		Convey("a missing required key is a ConfigurationError", func() {
			_, err := conf.GetInt("Navigator", "does_not_exist")
			So(err, ShouldNotBeNil)
			So(err, ShouldHaveSameTypeAs, &ConfigurationError{})
		})

		Convey("defaulted accessors fall back on a missing key", func() {
			So(conf.GetIntDefault("Navigator", "does_not_exist", 7), ShouldEqual, 7)
		})

		Convey("repeated calls are pure and never mutate the tree", func() {
			first, _ := conf.GetFloat("Navigator", "waypoint_threshold")
			second, _ := conf.GetFloat("Navigator", "waypoint_threshold")
			So(first, ShouldEqual, second)
		})
	})
}
