// pdf2speech 在命令行中把 PDF 转为 MP3，流程与 HTTP 接口一致。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/iabetor/mathspeech/internal/audio"
	"github.com/iabetor/mathspeech/internal/config"
	"github.com/iabetor/mathspeech/internal/database"
	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/pipeline"
	"github.com/iabetor/mathspeech/internal/tts"
)

func main() {
	os.Exit(run())
}

// run 返回进程退出码，所有 defer 都在退出前执行。
func run() int {
	configPath := flag.String("config", "configs/mathspeech.yaml", "配置文件路径")
	in := flag.String("in", "", "输入 PDF 文件")
	out := flag.String("out", "", "输出 MP3 文件，默认与输入同名")
	voice := flag.String("voice", tts.Voices[0].ID, "音色 ID")
	lang := flag.String("lang", tts.Languages[0].ID, "语言代码")
	stability := flag.Float64("stability", 0.5, "稳定度 [0, 1]")
	clarity := flag.Float64("clarity", 0.75, "清晰度 [0, 1]")
	store := flag.Bool("store", false, "把文档和合成记录保存到数据库")
	textOnly := flag.Bool("text", false, "只输出改写后的文本，不合成语音")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "用法: pdf2speech -in paper.pdf [-out paper.mp3]")
		flag.PrintDefaults()
		return 2
	}

	cfg := config.Default()
	if _, err := os.Stat(*configPath); err == nil {
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			return 1
		}
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Sync()

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取 %s 失败: %v\n", *in, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *textOnly {
		return printText(ctx, cfg, data)
	}

	opts := []pipeline.Option{
		pipeline.WithProgress(func(from, to pipeline.Step) {
			if to != pipeline.StepIdle {
				logger.Infof("[pdf2speech] %s", to)
			}
		}),
	}
	if cache, err := audio.NewCache(filepath.Join(cfg.Storage.DataDir, "cache"), cfg.Storage.CacheMaxMB); err == nil {
		opts = append(opts, pipeline.WithCache(cache))
	} else {
		logger.Warnf("[pdf2speech] 音频缓存不可用: %v", err)
	}
	if *store {
		db, err := openDatabase(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "打开数据库失败: %v\n", err)
			return 1
		}
		defer db.Close()
		opts = append(opts,
			pipeline.WithDatabase(db),
			pipeline.WithDocumentDir(filepath.Join(cfg.Storage.DataDir, "documents")))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建流水线失败: %v\n", err)
		return 1
	}

	res, err := p.Run(ctx, pipeline.Input{
		FileName: *in,
		Data:     data,
		Request: tts.Request{
			VoiceID:   *voice,
			Language:  *lang,
			Stability: *stability,
			Clarity:   *clarity,
		},
	})
	if err != nil {
		reportError(err)
		return 1
	}

	target := *out
	if target == "" {
		target = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".mp3"
	}
	if err := os.WriteFile(target, res.Speech.Audio.Data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "写入 %s 失败: %v\n", target, err)
		return 1
	}
	logger.Infof("[pdf2speech] 已生成 %s (%d 页, %.1f 秒, 缓存=%v)",
		target, res.Document.PageCount, res.Speech.Duration.Seconds(), res.Speech.Cached)
	return 0
}

// printText 只执行提取和改写，把结果写到标准输出。
func printText(ctx context.Context, cfg *config.Config, data []byte) int {
	p, err := pipeline.New(cfg, pipeline.WithSynthesizer(noSynth{}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建流水线失败: %v\n", err)
		return 1
	}
	ex, err := p.Extract(data)
	if err != nil {
		reportError(err)
		return 1
	}
	fmt.Println(p.Normalize(ctx, ex.Text).Text)
	return 0
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0755); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func reportError(err error) {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", pe.Title, pe.Detail)
		return
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
}

// noSynth 用于只改写文本的场景，避免创建需要密钥的合成引擎。
type noSynth struct{}

func (noSynth) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return nil, errors.New("synthesis disabled")
}
