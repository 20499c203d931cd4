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

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
)

// BuiltinFontSource 内置 Go 字体的来源名
const BuiltinFontSource = "builtin:goregular"

// FaceSource 按像素字号提供字体
type FaceSource interface {
	Face(size int) (font.Face, error)
}

// FontSet 启动时解析一次的字体；Face 每次返回新实例，可被并发的渲染各自持有
type FontSet struct {
	font   *opentype.Font
	source string
}

// Source 字体来源：文件路径或 BuiltinFontSource
func (fs *FontSet) Source() string {
	return fs.source
}

// Face 以 72 DPI 创建 size 像素的字体
func (fs *FontSet) Face(size int) (font.Face, error) {
	face, err := opentype.NewFace(fs.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create face size %d: %v", pkgerrors.ErrRender, size, err)
	}
	return face, nil
}

// DefaultFontSet 内置 Go 字体，不依赖运行环境
func DefaultFontSet() *FontSet {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic("render: parse builtin font: " + err.Error())
	}
	return &FontSet{font: f, source: BuiltinFontSource}
}

// LoadFontSet 依次尝试 paths 中的字体文件（.ttc/.otc 取集合中的第一个），
// 全部失败时回退到内置 Go 字体
func LoadFontSet(paths []string, logger *log.Logger) *FontSet {
	logger = log.OrNop(logger)
	for _, path := range paths {
		f, err := parseFontFile(path)
		if err != nil {
			logger.Debug("字体不可用", "path", path, "error", err)
			continue
		}
		logger.Info("使用字体", "path", path)
		return &FontSet{font: f, source: path}
	}
	logger.Warn("未找到可用字体，使用内置 Go 字体，中文将无法正常显示")
	return DefaultFontSet()
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttc", ".otc":
		c, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		if c.NumFonts() == 0 {
			return nil, fmt.Errorf("empty font collection")
		}
		return c.Font(0)
	default:
		return opentype.Parse(data)
	}
}
