package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	service "github.com/okian/ecotrack/internal/app"
	"github.com/okian/ecotrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRootCmd(t *testing.T) {
	Convey("Given the smoke command", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, session.NewManager("", false), svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When run against a live server", func() {
			cmd := newRootCmd()
			cmd.SetArgs([]string{"--url", srv.URL, "--sessions", "3", "--submissions", "2", "--seed", "9", "--log-format", "json"})
			err := cmd.Execute()

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When given an unknown log format", func() {
			cmd := newRootCmd()
			cmd.SetArgs([]string{"--url", srv.URL, "--log-format", "xml"})
			So(cmd.Execute(), ShouldNotBeNil)
		})

		Convey("When given positional arguments", func() {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs([]string{"extra"})
			So(cmd.Execute(), ShouldNotBeNil)
		})
	})
}
