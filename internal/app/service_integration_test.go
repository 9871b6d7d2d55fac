package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/inkflow/internal/adapters/repository"
	service "github.com/okian/inkflow/internal/app"
	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func pen(x, y float64) model.RawSample {
	return model.RawSample{Type: model.ContactPencil, X: x, Y: y, Force: 0.5, MaxForce: 1}
}

func pendingPen(x, y float64, key int64) model.RawSample {
	s := pen(x, y)
	s.UpdateKey = model.KeyOf(key)
	s.PendingProperties = []string{"force"}
	return s
}

func settled(key int64, force float64) model.RawSample {
	s := pen(0, 0)
	s.UpdateKey = model.KeyOf(key)
	s.Force = force
	return s
}

func batch(id, surface string, kind model.EventKind, contacts ...model.Contact) *model.Batch {
	return &model.Batch{BatchID: id, SurfaceID: surface, Kind: kind, Contacts: contacts}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func finishedOn(svc *service.Service, surface string) []types.StrokeView {
	views, _ := svc.Strokes(context.Background(), repository.Query{
		SurfaceID: surface,
		Status:    types.StatusFinished,
		Limit:     100,
	})
	return views
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithQueueSize(100), service.WithPreviewSize(64, 64))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a pen stroke with a late pressure estimate is replayed", func() {
			seq := []*model.Batch{
				batch("1", "s1", model.KindBegan, model.Contact{ID: "c", Sample: pendingPen(0, 0, 7)}),
				batch("2", "s1", model.KindMoved, model.Contact{
					ID:        "c",
					Sample:    pen(20, 10),
					Coalesced: []model.RawSample{pen(10, 5), pen(20, 10)},
					Predicted: []model.RawSample{pen(30, 15)},
				}),
				batch("3", "s1", model.KindEnded, model.Contact{ID: "c", Sample: pen(20, 10), Coalesced: []model.RawSample{}}),
			}
			for _, b := range seq {
				So(svc.Enqueue(ctx, b), ShouldBeNil)
			}

			Convey("Then the stroke is archived but still active", func() {
				So(waitFor(func() bool { return svc.GetStats().AppliedBatches == int64(3) }), ShouldBeTrue)
				views, err := svc.Strokes(ctx, repository.Query{SurfaceID: "s1", Limit: 10})
				So(err, ShouldBeNil)
				So(views, ShouldHaveLength, 1)
				So(views[0].Status, ShouldEqual, types.StatusActive)
				So(views[0].PendingUpdates, ShouldEqual, 1)
				So(views[0].Samples, ShouldHaveLength, 3)
				So(svc.GetStats().PendingUpdates, ShouldEqual, int64(1))
			})

			Convey("And the estimate finishes it", func() {
				est := batch("4", "s1", model.KindEstimated, model.Contact{ID: "c", Sample: settled(7, 1)})
				So(svc.Enqueue(ctx, est), ShouldBeNil)

				So(waitFor(func() bool { return len(finishedOn(svc, "s1")) == 1 }), ShouldBeTrue)
				view := finishedOn(svc, "s1")[0]
				So(view.Finished, ShouldBeTrue)
				So(view.FinishedPrefix, ShouldEqual, 3)
				So(view.Samples[0].Pressure, ShouldEqual, 1)
				So(waitFor(func() bool { return svc.GetStats().ActiveStrokes == int64(0) }), ShouldBeTrue)

				got, err := svc.Stroke(ctx, view.ID)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, view.ID)

				img, err := svc.Preview(ctx, view.ID)
				So(err, ShouldBeNil)
				decoded, err := png.Decode(bytes.NewReader(img))
				So(err, ShouldBeNil)
				So(decoded.Bounds().Dx(), ShouldEqual, 64)
			})
		})

		Convey("When surfaces are driven independently", func() {
			So(svc.Enqueue(ctx, batch("a1", "left", model.KindBegan, model.Contact{ID: "1", Sample: pen(0, 0)})), ShouldBeNil)
			So(svc.Enqueue(ctx, batch("b1", "right", model.KindBegan, model.Contact{ID: "1", Sample: pen(0, 0)})), ShouldBeNil)
			So(svc.Enqueue(ctx, batch("a2", "left", model.KindEnded, model.Contact{ID: "1", Sample: pen(1, 1)})), ShouldBeNil)

			Convey("Then the same contact id is tracked per surface", func() {
				So(waitFor(func() bool { return len(finishedOn(svc, "left")) == 1 }), ShouldBeTrue)
				So(finishedOn(svc, "right"), ShouldBeEmpty)
				So(svc.GetStats().Surfaces, ShouldEqual, 2)
				So(waitFor(func() bool { return svc.GetStats().ActiveStrokes == int64(1) }), ShouldBeTrue)
			})
		})

		Convey("When a contact is cancelled", func() {
			So(svc.Enqueue(ctx, batch("c1", "s2", model.KindBegan, model.Contact{ID: "x", Sample: pen(0, 0)})), ShouldBeNil)
			So(svc.Enqueue(ctx, batch("c2", "s2", model.KindCancelled, model.Contact{ID: "x", Sample: pen(1, 0)})), ShouldBeNil)

			Convey("Then it is archived as cancelled", func() {
				So(waitFor(func() bool {
					views, _ := svc.Strokes(ctx, repository.Query{SurfaceID: "s2", Status: types.StatusCancelled, Limit: 10})
					return len(views) == 1
				}), ShouldBeTrue)
			})
		})

		Convey("When an unknown stroke is requested", func() {
			_, err := svc.Stroke(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = svc.Preview(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a subscriber watches a surface", func() {
			srv := httptest.NewServer(svc.Stream())
			defer srv.Close()
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?surface=live", nil)
			So(err, ShouldBeNil)
			defer conn.Close()
			So(waitFor(func() bool { return svc.GetStats().StreamClients == 1 }), ShouldBeTrue)

			So(svc.Enqueue(ctx, batch("l1", "live", model.KindBegan, model.Contact{ID: "p", Sample: pen(0, 0)})), ShouldBeNil)

			Convey("Then it receives the created notification", func() {
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				var n types.Notification
				So(json.Unmarshal(data, &n), ShouldBeNil)
				So(n.Kind, ShouldEqual, types.NotifyCreated)
				So(n.SurfaceID, ShouldEqual, "live")
				So(n.Strokes, ShouldHaveLength, 1)
			})
		})
	})
}
