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

package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/webp"

	"profile-card/internal/storage/object"
	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
)

// FieldRecord 合并后的主体字段；数值保持 json.Number 以便原样回写
type FieldRecord map[string]any

// Assets 已解码的素材图，缺失的角色不在 map 中
type Assets map[Role]image.Image

// Store 产物存储，所有路径经 Layout 生成
type Store struct {
	objects object.Store
	layout  Layout
	logger  *log.Logger
}

// NewStore 创建产物存储
func NewStore(objects object.Store, logger *log.Logger) *Store {
	return &Store{objects: objects, logger: log.OrNop(logger)}
}

// Layout 返回路径映射
func (s *Store) Layout() Layout {
	return s.layout
}

// SaveRecord 以 2 空格缩进、不转义非 ASCII 的 JSON 整体覆盖写入字段记录
func (s *Store) SaveRecord(ctx context.Context, id int64, record FieldRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("%w: encode record %d: %v", pkgerrors.ErrIO, id, err)
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	return s.objects.Put(ctx, s.layout.RecordPath(id), bytes.NewReader(data), int64(len(data)))
}

// LoadRecord 读取字段记录，不存在时返回包裹 ErrNotFound 的错误
func (s *Store) LoadRecord(ctx context.Context, id int64) (FieldRecord, error) {
	rc, err := s.objects.Get(ctx, s.layout.RecordPath(id))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := json.NewDecoder(rc)
	dec.UseNumber()
	var record FieldRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: parse record %d: %v", pkgerrors.ErrIO, id, err)
	}
	if record == nil {
		record = FieldRecord{}
	}
	return record, nil
}

// HasRecord 字段记录是否存在
func (s *Store) HasRecord(ctx context.Context, id int64) (bool, error) {
	return s.objects.Exists(ctx, s.layout.RecordPath(id))
}

// SaveCard 覆盖写入卡片 PNG
func (s *Store) SaveCard(ctx context.Context, id int64, png []byte) error {
	return s.objects.Put(ctx, s.layout.CardPath(id), bytes.NewReader(png), int64(len(png)))
}

// LoadCard 读取卡片 PNG，不存在时返回包裹 ErrNotFound 的错误
func (s *Store) LoadCard(ctx context.Context, id int64) ([]byte, error) {
	rc, err := s.objects.Get(ctx, s.layout.CardPath(id))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read card %d: %v", pkgerrors.ErrIO, id, err)
	}
	return data, nil
}

// HasCard 卡片是否存在
func (s *Store) HasCard(ctx context.Context, id int64) (bool, error) {
	return s.objects.Exists(ctx, s.layout.CardPath(id))
}

// SaveAsset 写入素材图；同角色其它扩展名的旧文件先被移除，保证查找顺序命中新文件
func (s *Store) SaveAsset(ctx context.Context, id int64, role Role, ext string, data []byte) error {
	if !ValidExtension(ext) {
		return fmt.Errorf("%w: unsupported asset extension %q", pkgerrors.ErrInvalidArg, ext)
	}
	for _, e := range Extensions {
		if e == ext {
			continue
		}
		s.deleteQuietly(ctx, s.layout.AssetPath(id, role, e), "asset")
	}
	return s.objects.Put(ctx, s.layout.AssetPath(id, role, ext), bytes.NewReader(data), int64(len(data)))
}

// LoadAssets 按扩展名顺序为每个角色取第一个存在的素材并解码；损坏的素材记日志后视为缺失
func (s *Store) LoadAssets(ctx context.Context, id int64) Assets {
	assets := make(Assets, len(Roles))
	for _, role := range Roles {
		for _, ext := range Extensions {
			path := s.layout.AssetPath(id, role, ext)
			ok, err := s.objects.Exists(ctx, path)
			if err != nil || !ok {
				continue
			}
			img, err := s.decode(ctx, path)
			if err != nil {
				s.logger.Warn("素材图无法解码，按缺失处理", "subject", id, "path", path, "error", err)
			} else {
				assets[role] = img
			}
			break
		}
	}
	return assets
}

func (s *Store) decode(ctx context.Context, path string) (image.Image, error) {
	rc, err := s.objects.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, _, err := image.Decode(rc)
	return img, err
}

// CascadeDelete 删除主体的记录、全部角色与扩展名组合的素材以及卡片。
// 每个文件独立尝试，不存在的静默跳过，其它失败只记日志与指标，可重复调用。
func (s *Store) CascadeDelete(ctx context.Context, id int64) {
	s.deleteQuietly(ctx, s.layout.RecordPath(id), "record")
	for _, role := range Roles {
		for _, ext := range Extensions {
			s.deleteQuietly(ctx, s.layout.AssetPath(id, role, ext), "asset")
		}
	}
	s.deleteQuietly(ctx, s.layout.CardPath(id), "card")
	s.logger.Info("已清理主体产物", "subject", id)
}

func (s *Store) deleteQuietly(ctx context.Context, path, kind string) {
	err := s.objects.Delete(ctx, path)
	if err == nil || pkgerrors.Is(err, pkgerrors.ErrNotFound) {
		return
	}
	metrics.CascadeDeleteFailures.WithLabelValues(kind).Inc()
	s.logger.Warn("删除产物失败", "path", path, "kind", kind, "error", err)
}
