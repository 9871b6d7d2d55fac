package types_test

import (
	"testing"

	types "github.com/okian/inkflow/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatus(t *testing.T) {
	Convey("Given stroke statuses", t, func() {
		Convey("Then only finished and cancelled are terminal", func() {
			So(types.StatusActive.Terminal(), ShouldBeFalse)
			So(types.StatusFinished.Terminal(), ShouldBeTrue)
			So(types.StatusCancelled.Terminal(), ShouldBeTrue)
		})

		Convey("When parsing query values", func() {
			s, ok := types.ParseStatus("finished")
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, types.StatusFinished)

			s, ok = types.ParseStatus("")
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, types.Status(""))

			_, ok = types.ParseStatus("archived")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNotificationKind(t *testing.T) {
	Convey("Given notification kinds", t, func() {
		So(types.NotifyCreated.Status(), ShouldEqual, types.StatusActive)
		So(types.NotifyUpdated.Status(), ShouldEqual, types.StatusActive)
		So(types.NotifyFinished.Status(), ShouldEqual, types.StatusFinished)
		So(types.NotifyCancelled.Status(), ShouldEqual, types.StatusCancelled)
	})
}
