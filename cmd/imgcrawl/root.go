package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/imgcrawl/internal/app/crawl"
	"github.com/John-Robertt/imgcrawl/internal/config"
	"github.com/John-Robertt/imgcrawl/internal/scan"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "imgcrawl",
		Short: "抓取目录页中的图片并并发下载到本地目录",
		Long: `imgcrawl 抓取索引页，进入每个目录页，提取图片地址并并发下载到输出目录。

不带任何参数运行即使用内置默认值；可选的 imgcrawl.yaml、.env 与 IMGCRAWL_* 环境变量可以覆盖默认值。`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env 可选，不存在不报错。
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认尝试 ./imgcrawl.yaml）")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "执行抓取（与不带子命令运行相同）",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCrawl(cmd, configPath)
			},
		},
		&cobra.Command{
			Use:   "size [dir]",
			Short: "统计目录下所有普通文件的总字节数（默认统计输出目录）",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				eff, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				dir := eff.SizeDir
				if len(args) == 1 {
					dir = args[0]
				}
				return reportSize(cmd.OutOrStdout(), dir)
			},
		},
	)
	return root
}

func runCrawl(cmd *cobra.Command, configPath string) error {
	eff, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cmd.ErrOrStderr(), eff.LogLevel)
	if eff.Source != "" {
		log.Debug("读取配置文件", "path", eff.Source)
	}

	ui := newProgressUI(cmd.OutOrStdout())
	runErr := crawl.New(eff, ui, log).Run(cmd.Context())

	st := ui.stats()
	attrs := []any{
		"pages", st.Pages, "pages_failed", st.PagesFailed,
		"saved", st.Saved, "skipped", st.Skipped, "failed", st.Failed,
		"bytes", st.Bytes, "elapsed", ui.elapsed(),
	}
	if runErr != nil {
		log.Error("抓取失败", append(attrs, "error", runErr)...)
		return runErr
	}
	log.Info("抓取完成", attrs...)

	if !eff.ReportSize {
		return nil
	}
	return reportSize(cmd.OutOrStdout(), eff.SizeDir)
}

func loadConfig(configPath string) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, config.CLIArgs{ConfigPath: configPath})
}

// reportSize 输出目录总大小；与抓取过程无关，只看磁盘现状。
func reportSize(w io.Writer, dir string) error {
	sz, err := scan.FolderSize(dir)
	if err != nil {
		return fmt.Errorf("统计目录大小失败：%w", err)
	}
	fmt.Fprintf(w, "Folder size: %d\n", sz.Bytes)
	return nil
}

// newLogger 构造写到 stderr 的结构化日志；每次运行带唯一 run_id，便于多次运行的日志区分。
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("run_id", uuid.NewString())
}
