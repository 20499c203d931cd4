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

// Package artifact 管理单个主体派生出的全部产物：字段记录、三类素材图与渲染后的卡片
package artifact

import (
	"fmt"
	"strconv"
)

// Role 素材图角色，值即文件名中的角色段
type Role string

const (
	RoleAvatar Role = "face"
	RoleFrame  Role = "pendant"
	RoleBadge  Role = "nameplate"
)

// Roles 全部素材角色
var Roles = []Role{RoleAvatar, RoleFrame, RoleBadge}

// Extensions 素材扩展名的查找顺序，同一角色取第一个存在的
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ValidExtension 判断 ext 是否为支持的素材扩展名
func ValidExtension(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Layout 主体 ID 到存储路径的唯一映射
type Layout struct{}

// RecordPath 字段记录路径
func (Layout) RecordPath(id int64) string {
	return fmt.Sprintf("data/%d_data.json", id)
}

// AssetPath 素材图路径
func (Layout) AssetPath(id int64, role Role, ext string) string {
	return fmt.Sprintf("img/%d_%s%s", id, role, ext)
}

// CardPath 卡片路径
func (Layout) CardPath(id int64) string {
	return "output/" + strconv.FormatInt(id, 10) + ".png"
}
