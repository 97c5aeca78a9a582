package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named return loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
			So(func() { Get().Info(context.Background(), "test message", String("k", "v")) }, ShouldNotPanic)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, slog.LevelDebug)

		Convey("When logging with fields", func() {
			log.Info(context.Background(), "created vendor",
				Uint64("vendor_id", 7),
				Bool("ok", true),
				Duration("took", time.Millisecond),
				Float64("avg", 4.5),
				Error(errors.New("boom")),
			)

			Convey("Then every field is rendered", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "msg=\"created vendor\"")
				So(out, ShouldContainSubstring, "vendor_id=7")
				So(out, ShouldContainSubstring, "ok=true")
				So(out, ShouldContainSubstring, "took=1ms")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "source=logger_test.go:")
			})
		})

		Convey("When the context carries a request id", func() {
			ctx := WithRequestID(context.Background(), "req-1")
			log.Named("api").Warn(ctx, "slow")

			Convey("Then the id and logger name are attached", func() {
				So(RequestID(ctx), ShouldEqual, "req-1")
				So(buf.String(), ShouldContainSubstring, "request_id=req-1")
				So(buf.String(), ShouldContainSubstring, "logger=api")
			})
		})

		Convey("When logging below the level", func() {
			quiet := NewWithWriter(&buf, slog.LevelWarn)
			quiet.Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When Fatal is called", func() {
			code := -1
			l := &slogLogger{logger: slog.New(slog.NewTextHandler(&buf, nil)), exit: func(c int) { code = c }}
			l.Fatal(context.Background(), "fatal")

			Convey("Then the process exit hook receives 1", func() {
				So(code, ShouldEqual, 1)
				So(buf.String(), ShouldContainSubstring, "level=ERROR")
			})
		})
	})
}

func TestParseLevel(t *testing.T) {
	Convey("Given level names", t, func() {
		for name, want := range map[string]slog.Level{
			"debug": slog.LevelDebug, "": slog.LevelInfo, "INFO": slog.LevelInfo,
			"warning": slog.LevelWarn, "error": slog.LevelError,
		} {
			got, err := ParseLevel(name)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		_, err := ParseLevel("loud")
		So(err, ShouldNotBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
