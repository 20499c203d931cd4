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


package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// defaultAPIURL API 服务默认地址
const defaultAPIURL = "http://127.0.0.1:12561"

func apiBaseURL() string {
	if u := os.Getenv("PROFILE_CARD_API_URL"); u != "" {
		return u
	}
	return defaultAPIURL
}

// apiClient 访问 profile-card API 的薄封装
type apiClient struct {
	rc *resty.Client
}

func newClient(baseURL string) *apiClient {
	return &apiClient{rc: resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Accept", "application/json")}
}

// apiError 服务端返回的 {success:false, error, stage, mid}
type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stage   string `json:"stage"`
}

func errorOf(resp *resty.Response, what string) error {
	var e apiError
	if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
		if e.Stage != "" {
			return fmt.Errorf("%s: %s (stage=%s, status=%d)", what, e.Error, e.Stage, resp.StatusCode())
		}
		return fmt.Errorf("%s: %s (status=%d)", what, e.Error, resp.StatusCode())
	}
	return fmt.Errorf("%s: %s", what, resp.Status())
}

func (c *apiClient) health() (map[string]any, error) {
	var out map[string]any
	resp, err := c.rc.R().SetResult(&out).Get("/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorOf(resp, "GET /health")
	}
	return out, nil
}

// queryUser 返回 /<mid> 响应中的 data
func (c *apiClient) queryUser(mid int64) (map[string]any, error) {
	var out struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	path := "/" + strconv.FormatInt(mid, 10)
	resp, err := c.rc.R().SetResult(&out).Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK || !out.Success {
		return nil, errorOf(resp, "GET "+path)
	}
	return out.Data, nil
}

func (c *apiClient) fetchCard(mid int64) ([]byte, error) {
	path := "/card/" + strconv.FormatInt(mid, 10)
	resp, err := c.rc.R().SetHeader("Accept", "image/png").Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorOf(resp, "GET "+path)
	}
	return resp.Body(), nil
}

func (c *apiClient) history() ([]int64, error) {
	var out struct {
		History []int64 `json:"history"`
	}
	resp, err := c.rc.R().SetResult(&out).Get("/history")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, errorOf(resp, "GET /history")
	}
	return out.History, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
