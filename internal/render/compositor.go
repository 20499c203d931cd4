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

// Package render 把字段记录与素材图合成为一张 PNG 信息卡片。
// 版面自上而下由一个纵向游标推进，各段按固定顺序执行，缺失字段的段不占位置。
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"time"

	"golang.org/x/image/font"

	"profile-card/internal/artifact"
	pkgerrors "profile-card/pkg/errors"
	"profile-card/pkg/log"
	"profile-card/pkg/metrics"
	"profile-card/pkg/utils"
)

const (
	defaultWidth  = 800
	defaultHeight = 1000
	headerHeight  = 120
	titleText     = "B站用户信息卡片"
	footerText    = "来源 by 兆孽的B站用户查询"

	avatarX, avatarY, avatarSize = 50, 150, 80
	frameSize                    = avatarSize + 40

	infoX, infoY = 150, 160
	detailsX     = 50
	detailsGap   = 5
	lineHeight   = 25
	uidHeight    = 30
	sexHeight    = 30
	signGap      = 10

	nameWrap, nameMaxLines = 15, 2
	detailWrap             = 40
	signMaxLines           = 3
	titleMaxLines          = 2
	attestationMaxLines    = 2

	defaultName = "未知用户"
	defaultSex  = "未知"
	defaultSign = "这个用户还没有签名~"

	iconSize, iconPitch      = 100, 120
	iconsPerRow, iconRowStep = 3, 110
	iconTopGap, iconsGap     = 20, 30

	statsGap, statsHeight = 30, 160
	statsMargin           = 30
	statCardHeight        = 50
	statCardMargin        = 20
	statRowGap            = 15
	statCardsTop          = 45
	statBaseSize, statMin = 16, 10
	statInnerPadding      = 20
	footerOffset          = 30

	titleSize, nameSize   = 28, 24
	normalSize, smallSize = 18, 16
)

var (
	colorWhite       = color.RGBA{255, 255, 255, 255}
	colorBlack       = color.RGBA{0, 0, 0, 255}
	colorAccent      = color.RGBA{251, 114, 153, 255}
	colorGrey        = color.RGBA{100, 100, 100, 255}
	colorPlaceholder = color.RGBA{200, 200, 200, 255}
	colorGold        = color.RGBA{255, 215, 0, 255}
	colorBlue        = color.RGBA{100, 150, 255, 255}
	colorPanel       = color.RGBA{245, 245, 245, 255}
	colorPanelLine   = color.RGBA{220, 220, 220, 255}
	colorCardLine    = color.RGBA{230, 230, 230, 255}
	colorFooter      = color.RGBA{150, 150, 150, 255}
)

// stat 统计卡片：字段、标签与强调色，顺序即 2×2 网格的行优先顺序
type stat struct {
	field string
	label string
	color color.RGBA
}

var stats = [4]stat{
	{"follower", "粉丝数", color.RGBA{251, 114, 153, 255}},
	{"following", "关注数", color.RGBA{0, 160, 220, 255}},
	{"view", "播放量", color.RGBA{255, 150, 0, 255}},
	{"likes", "获赞数", color.RGBA{0, 180, 120, 255}},
}

// iconOrder 次级图标行的角色顺序
var iconOrder = []artifact.Role{artifact.RoleBadge, artifact.RoleAvatar, artifact.RoleFrame}

// Section 已绘制的版面段及其纵向范围 [Top, Bottom)
type Section struct {
	Name   string
	Top    int
	Bottom int
}

// Icon 次级图标的位置
type Icon struct {
	Role artifact.Role
	X, Y int
}

// Layout 一次渲染计算出的版面，供调用方与测试检查坐标
type Layout struct {
	Width, Height int
	NameLines     []string
	Sections      []Section
	DetailsEnd    int
	HasFrame      bool
	IconRows      int
	Icons         []Icon
	StatsTop      int
	StatSizes     [4]int
	FooterY       int
}

// Compositor 卡片合成器；除字体外无状态，可并发使用
type Compositor struct {
	fonts  *FontSet
	width  int
	height int
	logger *log.Logger
}

// Option 配置 Compositor
type Option func(*Compositor)

// WithCanvasWidth 设置画布宽度，统计卡片宽度随之变化
func WithCanvasWidth(w int) Option {
	return func(c *Compositor) {
		if w > 0 {
			c.width = w
		}
	}
}

// WithLogger 注入 logger
func WithLogger(l *log.Logger) Option {
	return func(c *Compositor) {
		c.logger = l
	}
}

// NewCompositor 创建合成器，fonts 为 nil 时使用内置字体
func NewCompositor(fonts *FontSet, opts ...Option) *Compositor {
	c := &Compositor{fonts: fonts, width: defaultWidth, height: defaultHeight}
	for _, opt := range opts {
		opt(c)
	}
	if c.fonts == nil {
		c.fonts = DefaultFontSet()
	}
	c.logger = log.OrNop(c.logger)
	return c
}

// Fonts 合成器使用的字体
func (c *Compositor) Fonts() *FontSet {
	return c.fonts
}

type faces struct {
	title, name, normal, small font.Face
}

func (f *faces) close() {
	for _, face := range []font.Face{f.title, f.name, f.normal, f.small} {
		if face != nil {
			face.Close()
		}
	}
}

func (c *Compositor) openFaces() (*faces, error) {
	f := &faces{}
	var err error
	if f.title, err = c.fonts.Face(titleSize); err != nil {
		return nil, err
	}
	if f.name, err = c.fonts.Face(nameSize); err != nil {
		f.close()
		return nil, err
	}
	if f.normal, err = c.fonts.Face(normalSize); err != nil {
		f.close()
		return nil, err
	}
	if f.small, err = c.fonts.Face(smallSize); err != nil {
		f.close()
		return nil, err
	}
	return f, nil
}

// section 版面段：接收当前游标，返回绘制后的游标；字段缺失时原样返回
type section struct {
	name string
	draw func(cursor int) int
}

// Render 绘制主体 id 的卡片并编码为 PNG。输出只取决于 record、assets 与字体。
func (c *Compositor) Render(id int64, record artifact.FieldRecord, assets artifact.Assets) ([]byte, *Layout, error) {
	start := time.Now()
	defer func() { metrics.RenderDuration.Observe(time.Since(start).Seconds()) }()

	fc, err := c.openFaces()
	if err != nil {
		return nil, nil, err
	}
	defer fc.close()

	cv := newCanvas(c.width, c.height, colorWhite)
	lay := &Layout{Width: c.width, Height: c.height}

	cv.fillRect(0, 0, c.width, headerHeight, colorAccent)
	cv.textCentered(fc.title, c.width/2, 30, titleText, colorWhite)

	c.drawAvatar(cv, assets[artifact.RoleAvatar])

	cursor := c.run(lay, c.infoSections(cv, fc, lay, id, record), infoY)
	cursor = c.run(lay, c.detailSections(cv, fc, record), cursor+detailsGap)
	lay.DetailsEnd = cursor

	if frame, ok := assets[artifact.RoleFrame]; ok {
		offset := (frameSize - avatarSize) / 2
		cv.composite(scaleTo(frame, frameSize), avatarX-offset, avatarY-offset, nil)
		lay.HasFrame = true
	}

	cursor = c.drawIcons(cv, lay, assets, cursor)

	lay.StatsTop = cursor + statsGap
	if err := c.drawStats(cv, fc, lay, record); err != nil {
		return nil, nil, err
	}

	lay.FooterY = c.height - footerOffset
	cv.textCentered(fc.small, c.width/2, lay.FooterY, footerText, colorFooter)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cv.img); err != nil {
		return nil, nil, fmt.Errorf("%w: encode png: %v", pkgerrors.ErrRender, err)
	}
	c.logger.Debug("卡片绘制完成", "subject", id, "bytes", buf.Len(), "stats_top", lay.StatsTop)
	return buf.Bytes(), lay, nil
}

// run 依次执行各段，记录实际占位的段
func (c *Compositor) run(lay *Layout, sections []section, cursor int) int {
	for _, s := range sections {
		next := s.draw(cursor)
		if next != cursor {
			lay.Sections = append(lay.Sections, Section{Name: s.name, Top: cursor, Bottom: next})
		}
		cursor = next
	}
	return cursor
}

func (c *Compositor) drawAvatar(cv *canvas, avatar image.Image) {
	mask := circleMask(avatarSize)
	if avatar == nil {
		cv.composite(solid(avatarSize, colorPlaceholder), avatarX, avatarY, mask)
		return
	}
	cv.composite(scaleTo(avatar, avatarSize), avatarX, avatarY, mask)
}

// infoSections 头像右侧的基本信息：名字、UID、等级、会员
func (c *Compositor) infoSections(cv *canvas, fc *faces, lay *Layout, id int64, rec artifact.FieldRecord) []section {
	return []section{
		{"name", func(y int) int {
			name := fieldString(rec, "name", defaultName)
			lay.NameLines = wrapLines(name, nameWrap, nameMaxLines)
			for i, line := range lay.NameLines {
				cv.text(fc.name, infoX, y+i*lineHeight, line, colorBlack)
			}
			return y + len(lay.NameLines)*lineHeight
		}},
		{"uid", func(y int) int {
			cv.text(fc.normal, infoX, y, "UID: "+strconv.FormatInt(id, 10), colorGrey)
			return y + uidHeight
		}},
		{"level", func(y int) int {
			level := fieldString(rec, "level", "0")
			if level == "" {
				return y
			}
			cv.text(fc.normal, infoX, y, "等级: Lv."+level, colorAccent)
			return y + lineHeight
		}},
		{"vip", func(y int) int {
			vip := fieldString(rec, "vip_text", "")
			if vip == "" {
				return y
			}
			cv.text(fc.normal, infoX, y, "会员: "+vip, colorAccent)
			return y + lineHeight
		}},
	}
}

// detailSections 详细信息，顺序固定：性别、签名、头衔、认证、勋章
func (c *Compositor) detailSections(cv *canvas, fc *faces, rec artifact.FieldRecord) []section {
	wrapped := func(name, field, prefix string, maxLines int, col color.Color) section {
		return section{name, func(y int) int {
			v := fieldString(rec, field, "")
			if v == "" {
				return y
			}
			lines := wrapLines(prefix+v, detailWrap, maxLines)
			for i, line := range lines {
				cv.text(fc.normal, detailsX, y+i*lineHeight, line, col)
			}
			return y + len(lines)*lineHeight
		}}
	}
	return []section{
		{"sex", func(y int) int {
			sex := fieldString(rec, "sex", defaultSex)
			if sex == "" {
				return y
			}
			cv.text(fc.normal, detailsX, y, "性别: "+sex, colorBlack)
			return y + sexHeight
		}},
		{"sign", func(y int) int {
			sign := utils.CoalesceString(fieldString(rec, "sign", ""), defaultSign)
			lines := wrapLines("签名: "+sign, detailWrap, signMaxLines)
			for i, line := range lines {
				cv.text(fc.normal, detailsX, y+i*lineHeight, line, colorGrey)
			}
			return y + len(lines)*lineHeight + signGap
		}},
		wrapped("official_title", "official_title", "头衔: ", titleMaxLines, colorGold),
		wrapped("attestation", "attestation_title", "认证: ", attestationMaxLines, colorBlue),
		{"nameplate", func(y int) int {
			v := fieldString(rec, "nameplate_name", "")
			if v == "" {
				return y
			}
			cv.text(fc.normal, detailsX, y, "勋章: "+v, colorBlack)
			return y + lineHeight
		}},
	}
}

// drawIcons 按 勋章、头像、头像框 的顺序绘制存在的素材，每行最多 3 个并水平居中
func (c *Compositor) drawIcons(cv *canvas, lay *Layout, assets artifact.Assets, cursor int) int {
	var present []artifact.Role
	for _, role := range iconOrder {
		if _, ok := assets[role]; ok {
			present = append(present, role)
		}
	}
	if len(present) == 0 {
		return cursor
	}
	for i := 0; i < len(present); i += iconsPerRow {
		row := present[i:min(i+iconsPerRow, len(present))]
		y := cursor + iconTopGap + (i/iconsPerRow)*iconRowStep
		total := len(row)*iconSize + (len(row)-1)*(iconPitch-iconSize)
		startX := (c.width - total) / 2
		for j, role := range row {
			x := startX + j*iconPitch
			cv.composite(scaleTo(assets[role], iconSize), x, y, nil)
			lay.Icons = append(lay.Icons, Icon{Role: role, X: x, Y: y})
		}
		lay.IconRows++
	}
	return cursor + lay.IconRows*iconRowStep + iconsGap
}

// drawStats 统计面板与 2×2 统计卡片；数值超宽时逐级缩小字号
func (c *Compositor) drawStats(cv *canvas, fc *faces, lay *Layout, rec artifact.FieldRecord) error {
	top := lay.StatsTop
	cv.rect(statsMargin, top, c.width-statsMargin, top+statsHeight, colorPanel, colorPanelLine, 2)
	cv.textCentered(fc.normal, c.width/2, top+15, "账号数据", colorBlack)

	cardWidth := (c.width - 100) / 2
	for i, st := range stats {
		row, col := i/2, i%2
		x := 50 + col*(cardWidth+statCardMargin)
		y := top + statCardsTop + row*(statCardHeight+statRowGap)
		cv.rect(x, y, x+cardWidth, y+statCardHeight, colorWhite, colorCardLine, 1)

		value := fieldString(rec, st.field, "0")
		size, err := FitSize(c.fonts, value, cardWidth-statInnerPadding, statBaseSize, statMin)
		if err != nil {
			return err
		}
		if size < statBaseSize {
			metrics.ShrinkToFitTotal.Inc()
		}
		lay.StatSizes[i] = size

		face, err := c.fonts.Face(size)
		if err != nil {
			return err
		}
		cv.text(face, x+(cardWidth-textWidth(face, value))/2, y+10, value, st.color)
		face.Close()

		cv.text(fc.normal, x+(cardWidth-textWidth(fc.normal, st.label))/2, y+30, st.label, colorGrey)
	}
	return nil
}

// fieldString 取字段的显示文本；字段缺失或为 null 时返回 def。
// 数值按原样输出，不加千分位。
func fieldString(rec artifact.FieldRecord, key, def string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
