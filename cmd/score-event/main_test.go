package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

func TestReport(t *testing.T) {
	Convey("Given a failed scoring run", t, func() {
		var out bytes.Buffer

		Convey("A partial write exits 3 with a rerun hint", func() {
			partial := &services.PartialWriteError{
				EventID:     "wm40",
				ChunksTotal: 2,
				Pending:     []models.MembershipScore{{LeagueID: "L1", UserID: "u1"}},
				Err:         errors.New("connection reset"),
			}
			So(report(&out, fmt.Errorf("scoring wm40: %w", partial)), ShouldEqual, 3)
			So(out.String(), ShouldContainSubstring, "apply the 1 pending membership(s)")
		})

		Convey("Any other error exits 1", func() {
			So(report(&out, services.ErrEventNotFound), ShouldEqual, 1)
			So(out.String(), ShouldNotContainSubstring, "Run the same command again")
		})
	})
}
