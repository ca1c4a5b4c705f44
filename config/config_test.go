package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefault(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := Default()

		Convey("Then it validates", func() {
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("Then scoring batches stay under a 500 operation ceiling", func() {
			So(cfg.ScoringBatchSize, ShouldEqual, 450)
			So(cfg.ScoringBatchSize, ShouldBeLessThan, 500)
		})

		Convey("Then it uses the mongo driver in development", func() {
			So(cfg.DBDriver, ShouldEqual, DriverMongo)
			So(cfg.IsDevelopment(), ShouldBeTrue)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid configuration", t, func() {
		cfg := Default()

		Convey("An unknown driver is rejected", func() {
			cfg.DBDriver = "firestore"
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("The default JWT secret is rejected in production", func() {
			cfg.Environment = "production"
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)

			cfg.JWTSecret = "a-real-secret"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("A negative batch size is rejected but zero means unbounded", func() {
			cfg.ScoringBatchSize = -1
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)

			cfg.ScoringBatchSize = 0
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("A default leaderboard limit above the max is rejected", func() {
			cfg.LeaderboardDefaultLim = cfg.LeaderboardMaxLimit + 1
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("The postgres driver needs a URL", func() {
			cfg.DBDriver = DriverPostgres
			cfg.PostgresURL = ""
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("The memory driver needs nothing else", func() {
			cfg.DBDriver = DriverMemory
			cfg.MongoURI = ""
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a YAML file and WG_ environment overrides", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		yamlBody := "db_driver: memory\nscoring_batch_size: 100\nlog_level: debug\n"
		So(os.WriteFile(path, []byte(yamlBody), 0o600), ShouldBeNil)

		t.Setenv("WG_SCORING_BATCH_SIZE", "25")
		t.Setenv("WG_DB_TIMEOUT", "3s")
		t.Setenv("WG_CORS_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("WG_BEHIND_PROXY", "true")

		cfg, err := load(path)

		Convey("Then env wins over the file and the file wins over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.DBDriver, ShouldEqual, DriverMemory)
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.ScoringBatchSize, ShouldEqual, 25)
			So(cfg.DBTimeout, ShouldEqual, 3*time.Second)
			So(cfg.CORSOrigins, ShouldResemble, []string{"https://a.example", "https://b.example"})
			So(cfg.BehindProxy, ShouldBeTrue)
		})

		Convey("Then untouched keys keep their defaults", func() {
			So(cfg.ServerAddr, ShouldEqual, Default().ServerAddr)
			So(cfg.AMQPExchange, ShouldEqual, "wrestleguess.events")
		})
	})

	Convey("Given a padded origin list in the environment", t, func() {
		t.Setenv("WG_CORS_ORIGINS", " https://a.example , ,https://b.example,")

		cfg, err := load("")

		Convey("Then each origin is trimmed and empty entries are dropped", func() {
			So(err, ShouldBeNil)
			So(cfg.CORSOrigins, ShouldResemble, []string{"https://a.example", "https://b.example"})
		})
	})

	Convey("Given an invalid override", t, func() {
		t.Setenv("WG_DB_DRIVER", "sqlite")

		_, err := load("")

		Convey("Then loading fails with ErrInvalidConfig", func() {
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
