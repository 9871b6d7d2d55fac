package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/inkflow/internal/config"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/logger"
	"github.com/okian/inkflow/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func get(t *testing.T, url string) (int, string, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header.Get("Content-Type"), body
}

func TestApplicationWiring(t *testing.T) {
	convey.Convey("Given the application built from configuration", t, func() {
		t.Setenv("INKFLOW_CONFIG", "")
		t.Setenv("INKFLOW_QUEUE_SIZE", "100")
		t.Setenv("INKFLOW_PREVIEW_WIDTH", "32")
		t.Setenv("INKFLOW_PREVIEW_HEIGHT", "32")
		ctx := context.Background()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, svc))
		defer srv.Close()

		convey.Convey("When a short stroke is posted", func() {
			began := `{"batch_id":"1","surface_id":"pad","kind":"began","contacts":[{"id":"f","sample":{"type":"direct","x":1,"y":1,"major_radius":50}}]}`
			ended := `{"batch_id":"2","surface_id":"pad","kind":"ended","contacts":[{"id":"f","sample":{"type":"direct","x":9,"y":5,"major_radius":50}}]}`
			convey.So(post(t, srv.URL+"/batches", began), convey.ShouldEqual, http.StatusAccepted)
			convey.So(post(t, srv.URL+"/batches", ended), convey.ShouldEqual, http.StatusAccepted)
			convey.So(post(t, srv.URL+"/batches", ended), convey.ShouldEqual, http.StatusOK)

			convey.Convey("Then it can be listed and previewed", func() {
				var views []types.StrokeView
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					_, _, body := get(t, srv.URL+"/strokes?surface=pad&status=finished")
					_ = json.Unmarshal(body, &views)
					if len(views) == 1 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(views, convey.ShouldHaveLength, 1)
				convey.So(views[0].Device, convey.ShouldEqual, "finger")
				convey.So(views[0].Samples, convey.ShouldHaveLength, 2)

				code, ctype, img := get(t, srv.URL+"/strokes/"+views[0].ID+"/preview.png")
				convey.So(code, convey.ShouldEqual, http.StatusOK)
				convey.So(ctype, convey.ShouldEqual, "image/png")
				convey.So(len(img), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("Then the operational routes are served", func() {
			code, _, _ := get(t, srv.URL+"/api-docs")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			code, _, _ = get(t, srv.URL+"/openapi.yaml")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			code, _, body := get(t, srv.URL+"/stats")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			convey.So(string(body), convey.ShouldContainSubstring, `"started":true`)
			code, _, _ = get(t, srv.URL+"/healthz")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then a system metrics update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the updaters return when the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			cfg := config.New()
			done := make(chan struct{}, 2)
			go func() { startSystemMetricsUpdater(ctx); done <- struct{}{} }()
			go func() { startServiceMetricsUpdater(ctx, newService(cfg, logger.Get())); done <- struct{}{} }()
			for i := 0; i < 2; i++ {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("updater did not stop")
				}
			}
		})
	})
}

func TestMetricsConfiguration(t *testing.T) {
	convey.Convey("Given metrics keys in the environment", t, func() {
		defer metrics.Configure()
		t.Setenv("INKFLOW_CONFIG", "")
		t.Setenv("INKFLOW_METRICS_PREFIX", "edge")
		t.Setenv("INKFLOW_METRICS_REFRESH_INTERVAL_MS", "1500")
		ctx := context.Background()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(configureMetrics(cfg), convey.ShouldBeNil)

		svc := newService(cfg, logger.Get())
		srv := httptest.NewServer(newHandler(ctx, svc))
		defer srv.Close()

		convey.Convey("Then /healthz serves the renamed series and the updaters use the interval", func() {
			_, _, _ = get(t, srv.URL+"/stats")
			code, _, body := get(t, srv.URL+"/healthz")
			convey.So(code, convey.ShouldEqual, http.StatusOK)
			convey.So(string(body), convey.ShouldContainSubstring, "inkflow_strokes_edge_http_requests_total")
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 1500*time.Millisecond)
		})
	})

	convey.Convey("Given metrics disabled", t, func() {
		defer metrics.Configure()
		cfg := config.New()
		cfg.MetricsEnabled = false
		convey.So(configureMetrics(cfg), convey.ShouldBeNil)

		srv := httptest.NewServer(newHandler(context.Background(), newService(cfg, logger.Get())))
		defer srv.Close()

		convey.Convey("Then /healthz exposes no series", func() {
			_, _, _ = get(t, srv.URL+"/stats")
			_, _, body := get(t, srv.URL+"/healthz")
			convey.So(strings.TrimSpace(string(body)), convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given malformed buckets", t, func() {
		cfg := config.New()
		cfg.MetricsBuckets = "10,1"

		convey.Convey("Then configuration is refused", func() {
			convey.So(configureMetrics(cfg), convey.ShouldNotBeNil)
		})
	})
}
