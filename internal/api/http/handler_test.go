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


package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-card/internal/api/http/middleware"
	"profile-card/internal/artifact"
	"profile-card/pkg/config"
	pkgerrors "profile-card/pkg/errors"
)

type fakeService struct {
	records    map[int64]artifact.FieldRecord
	cards      map[int64][]byte
	err        error
	history    []int64
	nonDurable bool
}

func (f *fakeService) Record(ctx context.Context, id int64) (artifact.FieldRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

func (f *fakeService) Card(ctx context.Context, id int64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cards[id], nil
}

func (f *fakeService) History() []int64 { return f.history }

func (f *fakeService) Durable() bool { return !f.nonDurable }

func buildRouterForTest(svc CardService) *server.Hertz {
	h := NewHandler(svc, "http://127.0.0.1:12561/", nil)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.Local) }
	return NewRouter(h, middleware.NewMiddleware(config.APIConfig{}), nil).Build(":0")
}

func get(s *server.Hertz, path string) (int, []byte, string) {
	w := ut.PerformRequest(s.Engine, "GET", path, &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	return resp.StatusCode(), resp.Body(), string(resp.Header.ContentType())
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out), string(body))
	return out
}

func TestIndexAndHealth(t *testing.T) {
	s := buildRouterForTest(&fakeService{nonDurable: true})

	status, body, _ := get(s, "/")
	assert.Equal(t, 200, status)
	assert.Equal(t, "running", decode(t, body)["status"])

	status, body, _ = get(s, "/health")
	assert.Equal(t, 200, status)
	out := decode(t, body)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, false, out["recency_durable"])
}

func TestGetRecord(t *testing.T) {
	svc := &fakeService{records: map[int64]artifact.FieldRecord{
		2: {"name": "碧诗", "follower": json.Number("1000")},
	}}
	s := buildRouterForTest(svc)

	status, body, _ := get(s, "/2")
	require.Equal(t, 200, status, string(body))
	out := decode(t, body)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, json.Number("2"), out["mid"])
	assert.Equal(t, "2024-05-01T12:00:00.123456", out["timestamp"])

	data := out["data"].(map[string]any)
	assert.Equal(t, "碧诗", data["name"])
	assert.Equal(t, json.Number("1000"), data["follower"])
	assert.Equal(t, "http://127.0.0.1:12561/card/2", data["card_image_url"])
	assert.NotContains(t, svc.records[2], "card_image_url")
}

func TestGetRecord_InvalidMid(t *testing.T) {
	s := buildRouterForTest(&fakeService{})

	status, body, _ := get(s, "/abc")
	assert.Equal(t, 400, status)
	out := decode(t, body)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "abc", out["mid"])
	assert.NotContains(t, out, "stage")
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"fetch", pkgerrors.NewStageError(pkgerrors.StageFetchRelation, 7, pkgerrors.ErrFetch, errors.New("boom")), 400, "fetch_relation"},
		{"io", pkgerrors.NewStageError(pkgerrors.StageSaveRecord, 7, pkgerrors.ErrIO, errors.New("disk full")), 500, "save_record"},
		{"render", pkgerrors.NewStageError(pkgerrors.StageRender, 7, pkgerrors.ErrRender, nil), 500, "render"},
		{"not found", pkgerrors.ErrNotFound, 404, ""},
		{"unknown", errors.New("other"), 500, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := buildRouterForTest(&fakeService{err: tc.err})
			for _, path := range []string{"/7", "/card/7"} {
				status, body, _ := get(s, path)
				assert.Equal(t, tc.status, status, path)
				out := decode(t, body)
				assert.Equal(t, false, out["success"])
				assert.Equal(t, json.Number("7"), out["mid"])
				if tc.stage == "" {
					assert.NotContains(t, out, "stage")
				} else {
					assert.Equal(t, tc.stage, out["stage"])
				}
			}
		})
	}
}

func TestGetCard(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	s := buildRouterForTest(&fakeService{cards: map[int64][]byte{3: png}})

	status, body, ctype := get(s, "/card/3")
	assert.Equal(t, 200, status)
	assert.Equal(t, "image/png", ctype)
	assert.Equal(t, png, body)
}

func TestHistory(t *testing.T) {
	s := buildRouterForTest(&fakeService{history: []int64{2, 3, 4}})

	status, body, _ := get(s, "/history")
	assert.Equal(t, 200, status)
	out := decode(t, body)
	assert.Equal(t, []any{json.Number("2"), json.Number("3"), json.Number("4")}, out["history"])
	assert.Equal(t, true, out["durable"])
}

func TestMetrics(t *testing.T) {
	s := buildRouterForTest(&fakeService{})

	status, body, ctype := get(s, "/metrics")
	assert.Equal(t, 200, status)
	assert.Contains(t, ctype, "text/plain")
	assert.Contains(t, string(body), "profilecard_")
}

func TestMetrics_Disabled(t *testing.T) {
	h := NewHandler(&fakeService{}, "", nil)
	r := NewRouter(h, middleware.NewMiddleware(config.APIConfig{}), nil)
	r.SetMetricsEnabled(false)
	s := r.Build(":0")

	status, _, _ := get(s, "/metrics")
	assert.Equal(t, 400, status)
}
