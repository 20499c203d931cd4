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
	"strings"

	"golang.org/x/image/font"
)

// wrapText 按空白切词后贪心折行，每行最多 width 个字符（按 rune 计）。
// 超长的词先填满当前行剩余空间，再按 width 切开；空文本没有行。
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var (
		lines []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > 0 {
			sep := 0
			if len(cur) > 0 {
				sep = 1
			}
			room := width - len(cur) - sep
			switch {
			case len(w) <= room:
				if sep == 1 {
					cur = append(cur, ' ')
				}
				cur = append(cur, w...)
				w = nil
			case len(w) > width && room > 0:
				if sep == 1 {
					cur = append(cur, ' ')
				}
				cur = append(cur, w[:room]...)
				w = w[room:]
				flush()
			default:
				flush()
			}
		}
	}
	flush()
	return lines
}

// wrapLines 折行后截断到 maxLines 行
func wrapLines(text string, width, maxLines int) []string {
	lines := wrapText(text, width)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// textWidth 文本墨迹包围盒宽度（像素）
func textWidth(face font.Face, text string) int {
	if text == "" {
		return 0
	}
	b, _ := font.BoundString(face, text)
	return (b.Max.X - b.Min.X).Ceil()
}

// FitSize 从 base 开始逐级减小字号，直到 text 宽度不超过 maxWidth；到 floor 为止
func FitSize(src FaceSource, text string, maxWidth, base, floor int) (int, error) {
	for size := base; size > floor; size-- {
		face, err := src.Face(size)
		if err != nil {
			return 0, err
		}
		w := textWidth(face, text)
		face.Close()
		if w <= maxWidth {
			return size, nil
		}
	}
	return floor, nil
}
