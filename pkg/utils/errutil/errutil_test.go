package errutil_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskmatrix/pkg/utils/errutil"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
)

func testContext(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	return logging.With(context.Background(), logger)
}

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	ctx := testContext(&buf)

	gt.NoError(t, errutil.Handle(ctx, nil, "nothing"))
	gt.Value(t, buf.Len()).Equal(0)

	cause := goerr.New("store unreadable", goerr.V("path", "/srv/data/database.db"))
	err := errutil.Handle(ctx, cause, "failed to count risks")
	gt.Bool(t, errors.Is(err, cause)).True()
	gt.String(t, buf.String()).Contains("failed to count risks")
	gt.String(t, buf.String()).Contains("/srv/data/database.db")
}

func TestHandleHTTP(t *testing.T) {
	var buf bytes.Buffer
	ctx := testContext(&buf)

	w := httptest.NewRecorder()
	errutil.HandleHTTP(ctx, w, errors.New("boom"), http.StatusServiceUnavailable)

	gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
	gt.String(t, w.Body.String()).Contains("boom")
	gt.String(t, buf.String()).Contains("HTTP error")
}

func TestHandleReportsValuesToSentry(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	gt.NoError(t, err).Required()

	var buf bytes.Buffer
	ctx := sentry.SetHubOnContext(testContext(&buf), sentry.NewHub(client, sentry.NewScope()))

	cause := goerr.New("seed failed", goerr.V("path", "/srv/data/database.db"))
	_ = errutil.Handle(ctx, cause, "failed to initialize application")

	gt.Array(t, events).Length(1).Required()
	gt.Map(t, events[0].Contexts).HasKey("goerr").Required()
	gt.Value(t, events[0].Contexts["goerr"]["path"]).Equal(any("/srv/data/database.db"))
}

func TestHandleHTTPReportsOnlyServerErrors(t *testing.T) {
	var count int
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			count++
			return nil
		},
	})
	gt.NoError(t, err).Required()

	var buf bytes.Buffer
	ctx := sentry.SetHubOnContext(testContext(&buf), sentry.NewHub(client, sentry.NewScope()))

	errutil.HandleHTTP(ctx, httptest.NewRecorder(), errors.New("bad input"), http.StatusBadRequest)
	gt.Value(t, count).Equal(0)

	errutil.HandleHTTP(ctx, httptest.NewRecorder(), errors.New("store down"), http.StatusServiceUnavailable)
	gt.Value(t, count).Equal(1)
}
