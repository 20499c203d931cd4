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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"profile-card/internal/app"
	"profile-card/pkg/config"
)

// version 构建时可通过 -ldflags 覆盖
var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string
	client := func() *apiClient { return newClient(apiURL) }

	root := &cobra.Command{
		Use:           "profile-card",
		Short:         "用户资料卡片查询客户端",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", apiBaseURL(), "API 服务地址（也可用环境变量 PROFILE_CARD_API_URL）")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "显示版本",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "profile-card cli %s\n", version)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "健康检查",
			RunE: func(cmd *cobra.Command, _ []string) error {
				out, err := client().health()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "显示配置概要",
			RunE:  runConfig,
		},
		&cobra.Command{
			Use:   "query <mid>",
			Short: "查询用户数据（有缓存用缓存）",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mid, err := app.ParseSubjectID(args[0])
				if err != nil {
					return err
				}
				data, err := client().queryUser(mid)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(data))
				return nil
			},
		},
		newCardCmd(client),
		&cobra.Command{
			Use:   "history",
			Short: "最近查询的 MID 列表（从旧到新）",
			RunE: func(cmd *cobra.Command, _ []string) error {
				ids, err := client().history()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(ids))
				return nil
			},
		},
		&cobra.Command{
			Use:   "interactive",
			Short: "交互式查询，输入 quit 退出",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runInteractive(client(), cmd.InOrStdin(), cmd.OutOrStdout())
			},
		},
	)
	return root
}

func newCardCmd(client func() *apiClient) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "card <mid>",
		Short: "下载用户卡片 PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mid, err := app.ParseSubjectID(args[0])
			if err != nil {
				return err
			}
			png, err := client().fetchCard(mid)
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = fmt.Sprintf("%d.png", mid)
			}
			if err := os.WriteFile(path, png, 0644); err != nil {
				return fmt.Errorf("保存卡片失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "卡片已保存到: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件，默认 <mid>.png")
	return cmd
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "api.host=%s\n", cfg.API.Host)
	fmt.Fprintf(out, "api.port=%d\n", cfg.API.Port)
	fmt.Fprintf(out, "storage.object=%s root=%s\n", cfg.Storage.Object.Type, cfg.Storage.Object.Root)
	fmt.Fprintf(out, "storage.cache=%s\n", cfg.Storage.Cache.Type)
	fmt.Fprintf(out, "recency.capacity=%d\n", cfg.Recency.Capacity)
	fmt.Fprintf(out, "secrets.provider=%s\n", cfg.Secrets.Provider)
	return nil
}

// runInteractive 逐行读取 MID 并查询，quit 或输入结束时退出
func runInteractive(c *apiClient, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n请输入用户 MID（输入 'quit' 退出）: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n输入结束，退出交互模式")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "quit") {
			fmt.Fprintln(out, "程序退出，再见！")
			return nil
		}
		mid, err := app.ParseSubjectID(line)
		if err != nil {
			fmt.Fprintln(out, "错误: MID 必须是数字")
			continue
		}
		data, err := c.queryUser(mid)
		if err != nil {
			fmt.Fprintf(out, "部分或全部数据查询失败，请稍后重试: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "用户 %d 查询完成: %v\n", mid, data["name"])
		if u, ok := data["card_image_url"].(string); ok {
			fmt.Fprintf(out, "卡片: %s\n", u)
		}
	}
}
