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
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// canvas 不透明的 RGBA 画布；坐标与矩形端点均为闭区间，与常见绘图库的矩形语义一致
type canvas struct {
	img *image.RGBA
}

func newCanvas(width, height int, bg color.Color) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &canvas{img: img}
}

func (c *canvas) fillRect(x0, y0, x1, y1 int, col color.Color) {
	r := image.Rect(x0, y0, x1+1, y1+1).Intersect(c.img.Bounds())
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// rect 填充后向内描边 width 像素
func (c *canvas) rect(x0, y0, x1, y1 int, fill, outline color.Color, width int) {
	c.fillRect(x0, y0, x1, y1, fill)
	for i := 0; i < width; i++ {
		c.fillRect(x0+i, y0+i, x1-i, y0+i, outline)
		c.fillRect(x0+i, y1-i, x1-i, y1-i, outline)
		c.fillRect(x0+i, y0+i, x0+i, y1-i, outline)
		c.fillRect(x1-i, y0+i, x1-i, y1-i, outline)
	}
}

// text 以 (x, y) 为左上角（上沿对齐字体 ascent）绘制单行文本
func (c *canvas) text(face font.Face, x, y int, s string, col color.Color) {
	if s == "" {
		return
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

// textCentered 以 (cx, cy) 为水平、垂直中点绘制单行文本
func (c *canvas) textCentered(face font.Face, cx, cy int, s string, col color.Color) {
	if s == "" {
		return
	}
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	baseline := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(cx-w/2, baseline),
	}
	d.DrawString(s)
}

// composite 把 src 以 Over 混合到 (x, y)；mask 为 nil 时只按 src 自身的 alpha
func (c *canvas) composite(src image.Image, x, y int, mask image.Image) {
	b := src.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.DrawMask(c.img, r, src, b.Min, mask, image.Point{}, draw.Over)
}

// solid size×size 纯色图
func solid(size int, col color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	return img
}

// scaleTo 用 Catmull-Rom 缩放到 size×size
func scaleTo(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// circleMask 内切圆二值遮罩，像素中心落在圆内即不透明
func circleMask(size int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy <= r*r {
				m.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return m
}
