// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package middleware

import (
	"bytes"
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"

	"profile-card/pkg/config"
	"profile-card/pkg/log"
)

func newTestServer(m *Middleware) *server.Hertz {
	h := server.Default(server.WithHostPorts(":0"))
	h.Use(m.RequestID(), m.CORS(), m.RateLimit(), AccessLog(log.NewNop()))
	h.GET("/ping", func(ctx context.Context, c *app.RequestContext) {
		c.String(200, "pong")
	})
	return h
}

func emptyBody() *ut.Body {
	return &ut.Body{Body: bytes.NewReader(nil), Len: 0}
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	h := newTestServer(NewMiddleware(config.APIConfig{}))

	w := ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody())
	assert.Len(t, w.Result().Header.Get(HeaderRequestID), 36)

	w = ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody(), ut.Header{Key: HeaderRequestID, Value: "abc"})
	assert.Equal(t, "abc", w.Result().Header.Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	cfg := config.APIConfig{CORS: config.CORSConfig{Enable: true, AllowOrigins: []string{"https://a.example"}}}
	h := newTestServer(NewMiddleware(cfg))

	w := ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody(), ut.Header{Key: "Origin", Value: "https://a.example"})
	assert.Equal(t, "https://a.example", w.Result().Header.Get("Access-Control-Allow-Origin"))

	w = ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody(), ut.Header{Key: "Origin", Value: "https://b.example"})
	assert.Empty(t, w.Result().Header.Get("Access-Control-Allow-Origin"))

	w = ut.PerformRequest(h.Engine, "OPTIONS", "/ping", emptyBody(), ut.Header{Key: "Origin", Value: "https://a.example"})
	assert.Equal(t, 204, w.Result().StatusCode())
}

func TestCORS_Disabled(t *testing.T) {
	h := newTestServer(NewMiddleware(config.APIConfig{}))
	w := ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody(), ut.Header{Key: "Origin", Value: "https://a.example"})
	assert.Empty(t, w.Result().Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 200, w.Result().StatusCode())
}

func TestRateLimit(t *testing.T) {
	cfg := config.APIConfig{Middleware: config.MiddlewareConfig{RateLimit: true, RateLimitRPS: 1}}
	h := newTestServer(NewMiddleware(cfg))

	w := ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody())
	assert.Equal(t, 200, w.Result().StatusCode())
	w = ut.PerformRequest(h.Engine, "GET", "/ping", emptyBody())
	assert.Equal(t, 429, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"success":false`)
}

func TestDetermineAction(t *testing.T) {
	cases := map[string]string{
		"/":        "index",
		"/health":  "health",
		"/history": "history",
		"/metrics": "metrics",
		"/card/42": "card",
		"/42":      "query",
		"/a/b/c":   "unknown",
	}
	for path, want := range cases {
		assert.Equal(t, want, determineAction(path), path)
	}
}
