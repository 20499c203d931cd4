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

package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-card/internal/artifact"
	"profile-card/internal/recency"
	"profile-card/internal/render"
	"profile-card/internal/storage/cache"
	"profile-card/internal/storage/object"
	pkgerrors "profile-card/pkg/errors"
)

type fakeFetcher struct {
	mu           sync.Mutex
	calls        int
	failStage    pkgerrors.Stage
	profile      map[string]any
	relation     map[string]any
	engagement   map[string]any
	assetFetches int
}

func (f *fakeFetcher) step(stage pkgerrors.Stage, out map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if stage == f.failStage {
		return nil, errors.New("upstream unavailable")
	}
	return out, nil
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, id int64) (map[string]any, error) {
	return f.step(pkgerrors.StageFetchProfile, f.profile)
}

func (f *fakeFetcher) FetchRelation(ctx context.Context, id int64) (map[string]any, error) {
	return f.step(pkgerrors.StageFetchRelation, f.relation)
}

func (f *fakeFetcher) FetchEngagement(ctx context.Context, id int64) (map[string]any, error) {
	return f.step(pkgerrors.StageFetchEngagement, f.engagement)
}

func (f *fakeFetcher) FetchAsset(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.assetFetches++
	f.mu.Unlock()
	if url == "https://example.invalid/broken.png" {
		return nil, "", errors.New("404")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), ".png", nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		profile:    map[string]any{"name": "小明", "level": 5, "face_url": "https://example.invalid/face.png", "nameplate_url": "https://example.invalid/broken.png"},
		relation:   map[string]any{"follower": 123456789, "following": 3},
		engagement: map[string]any{"view": 10, "likes": 2},
	}
}

func newService(t *testing.T, f Fetcher) (*CardService, *artifact.Store, *recency.Cache) {
	t.Helper()
	store := artifact.NewStore(object.NewMemoryStore(), nil)
	rc := recency.New(context.Background(), recency.NewStorePersister(cache.NewMemoryStore(), "recency"), store)
	return NewCardService(rc, store, render.NewCompositor(nil), f, nil), store, rc
}

func TestMergeOverwriteWins(t *testing.T) {
	rec := Merge(
		map[string]any{"name": "profile", "level": 1},
		map[string]any{"name": "relation", "follower": 2},
		map[string]any{"name": "engagement"},
	)
	assert.Equal(t, "engagement", rec["name"])
	assert.Equal(t, 1, rec["level"])
	assert.Equal(t, 2, rec["follower"])
}

func TestParseSubjectID(t *testing.T) {
	id, err := ParseSubjectID("2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	for _, bad := range []string{"", "-1", "12a", " 3", "+4", "99999999999999999999"} {
		_, err := ParseSubjectID(bad)
		assert.True(t, pkgerrors.Is(err, pkgerrors.ErrInvalidArg), "input %q", bad)
	}
}

func TestQuery_Success(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	svc, store, rc := newService(t, f)

	rec, err := svc.Query(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "小明", rec["name"])
	assert.Equal(t, 123456789, rec["follower"])

	hasRecord, _ := store.HasRecord(ctx, 42)
	hasCard, _ := store.HasCard(ctx, 42)
	assert.True(t, hasRecord)
	assert.True(t, hasCard)
	assert.Equal(t, []int64{42}, rc.List())

	assets := store.LoadAssets(ctx, 42)
	assert.Contains(t, assets, artifact.RoleAvatar)
	assert.NotContains(t, assets, artifact.RoleBadge, "failed download is skipped")
	assert.Equal(t, 2, f.assetFetches)
}

func TestQuery_PartialFetchNotPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	f.failStage = pkgerrors.StageFetchRelation
	svc, store, rc := newService(t, f)

	_, err := svc.Query(ctx, 7)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrFetch))
	assert.Equal(t, pkgerrors.StageFetchRelation, pkgerrors.StageOf(err))
	assert.Equal(t, 2, f.Calls(), "engagement is not fetched after relation fails")

	hasRecord, _ := store.HasRecord(ctx, 7)
	hasCard, _ := store.HasCard(ctx, 7)
	assert.False(t, hasRecord)
	assert.False(t, hasCard)
	assert.Equal(t, []int64{7}, rc.List(), "the touch happens before fetching")
}

func TestQuery_EvictionCascades(t *testing.T) {
	ctx := context.Background()
	svc, store, rc := newService(t, newFetcher())

	for _, id := range []int64{1, 2, 3, 4} {
		_, err := svc.Query(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{2, 3, 4}, rc.List())

	hasRecord, _ := store.HasRecord(ctx, 1)
	hasCard, _ := store.HasCard(ctx, 1)
	assert.False(t, hasRecord)
	assert.False(t, hasCard)
	assert.Empty(t, store.LoadAssets(ctx, 1))

	hasRecord, _ = store.HasRecord(ctx, 2)
	assert.True(t, hasRecord)
}

func TestRenderCard_MissingRecord(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t, newFetcher())

	err := svc.RenderCard(ctx, 99)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrRender))
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrNotFound))
	assert.Equal(t, pkgerrors.StageRender, pkgerrors.StageOf(err))

	hasCard, _ := store.HasCard(ctx, 99)
	assert.False(t, hasCard)
}

func TestCard_RegeneratesFromRecordWithoutFetching(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	svc, store, rc := newService(t, f)
	require.NoError(t, store.SaveRecord(ctx, 5, artifact.FieldRecord{"name": "cached"}))

	data, err := svc.Card(ctx, 5)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, f.Calls())
	assert.Empty(t, rc.List())

	again, err := svc.Card(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestCard_QueriesWhenNothingCached(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	svc, _, _ := newService(t, f)

	data, err := svc.Card(ctx, 6)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, 3, f.Calls())
}

func TestRecord_CachedEnsuresCard(t *testing.T) {
	ctx := context.Background()
	f := newFetcher()
	svc, store, rc := newService(t, f)
	require.NoError(t, store.SaveRecord(ctx, 8, artifact.FieldRecord{"name": "cached"}))

	rec, err := svc.Record(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "cached", rec["name"])
	hasCard, _ := store.HasCard(ctx, 8)
	assert.True(t, hasCard)
	assert.Zero(t, f.Calls())
	assert.Empty(t, rc.List())
}

func TestRecord_FetchFailureSurfaces(t *testing.T) {
	f := newFetcher()
	f.failStage = pkgerrors.StageFetchProfile
	svc, _, _ := newService(t, f)

	_, err := svc.Record(context.Background(), 11)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrFetch))
	assert.Equal(t, pkgerrors.StageFetchProfile, pkgerrors.StageOf(err))
}
