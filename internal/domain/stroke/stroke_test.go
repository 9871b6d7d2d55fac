package stroke

import (
	"testing"

	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func pen(x float64) *model.RawSample {
	return &model.RawSample{Type: model.ContactPencil, X: x, Force: 0.5, MaxForce: 1}
}

func pendingPen(x float64, key int64) *model.RawSample {
	s := pen(x)
	s.UpdateKey = model.KeyOf(key)
	s.PendingProperties = []string{"force"}
	return s
}

func resolved(x float64, key int64) *model.RawSample {
	s := pen(x)
	s.UpdateKey = model.KeyOf(key)
	return s
}

func TestStrokeAddSample(t *testing.T) {
	Convey("Given a new stroke", t, func() {
		s := New()
		frame := model.Frame{}

		So(s.Len(), ShouldEqual, 0)
		So(s.Device(), ShouldEqual, Finger)
		So(s.ContactActive(), ShouldBeTrue)
		So(s.IsFinished(), ShouldBeFalse)

		Convey("When a sample expects no updates", func() {
			s.AddSample(pen(1), Confirmed, frame)

			Convey("Then it is finalized immediately", func() {
				So(s.Len(), ShouldEqual, 1)
				So(s.At(0).IsFinalized(), ShouldBeTrue)
				So(s.PendingUpdates(), ShouldEqual, 0)
				So(s.Device(), ShouldEqual, Stylus)
			})
		})

		Convey("When a keyed sample expects updates", func() {
			s.AddSample(pendingPen(1, 7), Confirmed, frame)

			Convey("Then it waits for its resolution", func() {
				So(s.At(0).IsFinalized(), ShouldBeFalse)
				So(s.PendingUpdates(), ShouldEqual, 1)
			})

			Convey("And a partial resolution keeps it pending", func() {
				So(s.ResolveUpdate(pendingPen(2, 7), frame), ShouldBeTrue)
				So(s.At(0).IsFinalized(), ShouldBeFalse)
				So(s.At(0).Position().X, ShouldEqual, 2)
				So(s.PendingUpdates(), ShouldEqual, 1)
			})

			Convey("And the final resolution finalizes it", func() {
				So(s.ResolveUpdate(resolved(3, 7), frame), ShouldBeTrue)
				So(s.At(0).IsFinalized(), ShouldBeTrue)
				So(s.At(0).Position().X, ShouldEqual, 3)
				So(s.PendingUpdates(), ShouldEqual, 0)
			})

			Convey("And a confirmed sample with the same key corrects instead of appending", func() {
				s.AddSample(resolved(9, 7), Confirmed, frame)
				So(s.Len(), ShouldEqual, 1)
				So(s.At(0).Position().X, ShouldEqual, 9)
				So(s.At(0).IsFinalized(), ShouldBeTrue)
			})
		})

		Convey("When a sample expects updates but has no key", func() {
			raw := pen(1)
			raw.PendingProperties = []string{"force"}
			s.AddSample(raw, Confirmed, frame)
			So(s.At(0).IsFinalized(), ShouldBeTrue)
			So(s.PendingUpdates(), ShouldEqual, 0)
		})

		Convey("When a predicted sample expects updates", func() {
			s.AddSample(pendingPen(1, 3), Predicted, frame)

			Convey("Then it is never registered as pending", func() {
				So(s.PendingUpdates(), ShouldEqual, 0)
				So(s.At(0).IsFinalized(), ShouldBeTrue)
			})
		})
	})
}

func TestStrokeResolveUnknownKey(t *testing.T) {
	Convey("Given a stroke with one pending sample", t, func() {
		s := New()
		s.AddSample(pendingPen(1, 1), Confirmed, model.Frame{})
		before := s.Samples()

		Convey("When an update arrives for an unknown key", func() {
			ok := s.ResolveUpdate(resolved(50, 99), model.Frame{})

			Convey("Then nothing changes", func() {
				So(ok, ShouldBeFalse)
				So(s.Samples(), ShouldResemble, before)
				So(s.At(0).Position().X, ShouldEqual, 1)
				So(s.PendingUpdates(), ShouldEqual, 1)
			})
		})

		Convey("When an update arrives without any key", func() {
			So(s.ResolveUpdate(pen(5), model.Frame{}), ShouldBeFalse)
			So(s.PendingUpdates(), ShouldEqual, 1)
		})
	})
}

func TestStrokeMarkContactEnded(t *testing.T) {
	Convey("Given a stroke with a pending sample", t, func() {
		s := New()
		s.AddSample(pendingPen(1, 4), Confirmed, model.Frame{})

		Convey("When the contact ends still expecting updates", func() {
			s.MarkContactEnded(pendingPen(100, 4))

			Convey("Then the stroke is not finished yet", func() {
				So(s.ContactActive(), ShouldBeFalse)
				So(s.IsFinished(), ShouldBeFalse)
				So(s.PendingUpdates(), ShouldEqual, 1)
			})

			Convey("And the late resolution finishes it", func() {
				s.ResolveUpdate(resolved(2, 4), model.Frame{})
				So(s.IsFinished(), ShouldBeTrue)
			})
		})

		Convey("When the contact ends with nothing more expected for that key", func() {
			s.MarkContactEnded(resolved(100, 4))

			Convey("Then the pending sample is finalized without new geometry", func() {
				So(s.IsFinished(), ShouldBeTrue)
				So(s.At(0).IsFinalized(), ShouldBeTrue)
				So(s.At(0).Position().X, ShouldEqual, 1)
			})
		})

		Convey("When the contact ends without a key", func() {
			s.MarkContactEnded(pen(100))
			So(s.ContactActive(), ShouldBeFalse)
			So(s.IsFinished(), ShouldBeFalse)
		})

		Convey("When the stroke is abandoned", func() {
			n := s.Abandon()
			So(n, ShouldEqual, 1)
			So(s.IsFinished(), ShouldBeTrue)
			So(s.At(0).IsFinalized(), ShouldBeTrue)
		})
	})
}

func TestStrokePurgePredicted(t *testing.T) {
	Convey("Given a stroke with a predicted tail", t, func() {
		s := New()
		frame := model.Frame{}
		s.AddSample(pen(1), Confirmed, frame)
		s.AddSample(pen(2), Confirmed, frame)
		s.AddSample(pen(3), Predicted, frame)
		s.AddSample(pen(4), Predicted, frame)

		Convey("When predicted samples are purged", func() {
			n := s.PurgePredicted()

			Convey("Then only confirmed samples remain", func() {
				So(n, ShouldEqual, 2)
				So(s.Len(), ShouldEqual, 2)
				So(s.PurgePredicted(), ShouldEqual, 0)
			})

			Convey("And later confirmed samples never follow a predicted one", func() {
				s.AddSample(pen(5), Confirmed, frame)
				s.AddSample(pen(6), Predicted, frame)
				s.PurgePredicted()
				s.AddSample(pen(7), Confirmed, frame)

				seenPredicted := false
				for _, p := range s.Samples() {
					if p.Provenance() == Predicted {
						seenPredicted = true
					} else {
						So(seenPredicted, ShouldBeFalse)
					}
				}
				So(s.Len(), ShouldEqual, 4)
			})
		})
	})
}

func TestStrokeFinishedPrefix(t *testing.T) {
	Convey("Given samples [finalized, finalized, unfinalized, predicted]", t, func() {
		s := New()
		frame := model.Frame{}
		s.AddSample(pen(1), Confirmed, frame)
		s.AddSample(pen(2), Confirmed, frame)
		s.AddSample(pendingPen(3, 1), Confirmed, frame)
		s.AddSample(pen(4), Predicted, frame)

		Convey("Then the finished prefix is 2", func() {
			So(s.FinishedPrefixLength(), ShouldEqual, 2)
		})

		Convey("And prefixes from an offset stop at the same sample", func() {
			So(s.FinishedPrefixFrom(1), ShouldEqual, 1)
			So(s.FinishedPrefixFrom(2), ShouldEqual, 0)
			So(s.FinishedPrefixFrom(3), ShouldEqual, 0)
			So(s.FinishedPrefixFrom(-1), ShouldEqual, 0)
			So(s.FinishedPrefixFrom(10), ShouldEqual, 0)
		})

		Convey("When the pending sample resolves", func() {
			s.ResolveUpdate(resolved(3, 1), frame)

			Convey("Then the prefix grows up to the predicted tail", func() {
				So(s.FinishedPrefixLength(), ShouldEqual, 3)
			})
		})
	})
}

func TestStrokeView(t *testing.T) {
	Convey("Given a stroke with samples", t, func() {
		s := New()
		s.AddSample(pen(1), Confirmed, model.Frame{})
		s.AddSample(pen(2), Predicted, model.Frame{})

		Convey("When a view is taken", func() {
			v := s.View("canvas", types.StatusActive)

			Convey("Then it mirrors the stroke", func() {
				So(v.ID, ShouldEqual, s.ID().String())
				So(v.SurfaceID, ShouldEqual, "canvas")
				So(v.Device, ShouldEqual, "stylus")
				So(v.Samples, ShouldHaveLength, 2)
				So(v.Samples[1].Provenance, ShouldEqual, "predicted")
				So(v.FinishedPrefix, ShouldEqual, 1)
				So(v.Finished, ShouldBeFalse)
			})

			Convey("And later mutations do not leak into it", func() {
				s.PurgePredicted()
				So(v.Samples, ShouldHaveLength, 2)
			})
		})
	})
}
