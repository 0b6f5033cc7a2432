package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/iabetor/speakit/internal/audio"
	"github.com/iabetor/speakit/internal/config"
	"github.com/iabetor/speakit/internal/logger"
	"github.com/iabetor/speakit/internal/pipeline"
	"github.com/iabetor/speakit/internal/playback"
	"github.com/iabetor/speakit/internal/store"
	"github.com/iabetor/speakit/internal/tts"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（为空时只使用默认值和环境变量）")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "speak":
		err = cmdSpeak(ctx, cfg, args[1:])
	case "export":
		err = cmdExport(ctx, cfg, args[1:])
	case "voices":
		err = cmdVoices(ctx, cfg, args[1:])
	case "play-file":
		err = cmdPlayFile(ctx, cfg, args[1:])
	case "history":
		err = cmdHistory(ctx, cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "speakit 日语文本朗读工具")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: speakit [-config <path>] <command> [options] [text]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "命令:")
	fmt.Fprintln(os.Stderr, "  speak      朗读文本（参数、-file 或标准输入）")
	fmt.Fprintln(os.Stderr, "  export     合成并保存为 WAV 文件")
	fmt.Fprintln(os.Stderr, "  voices     列出可用音色（按品质分组）")
	fmt.Fprintln(os.Stderr, "  play-file  播放 16-bit PCM WAV 文件")
	fmt.Fprintln(os.Stderr, "  history    显示最近的合成记录")
}

// textOptions 是 speak 和 export 共用的参数。
type textOptions struct {
	voice string
	rate  float64
	file  string
}

func (o *textOptions) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&o.voice, "voice", cfg.Google.Voice, "音色名称，如 ja-JP-Neural2-B")
	fs.Float64Var(&o.rate, "rate", cfg.Google.SpeakingRate, "语速 (0.25-4.0)")
	fs.StringVar(&o.file, "file", "", "从文件读取文本，- 表示标准输入")
}

// readText 依次使用位置参数、-file 指定的文件；都没有时读取标准输入。
func (o *textOptions) readText(args []string) (string, bool, error) {
	if len(args) > 0 && o.file == "" {
		return strings.Join(args, " "), false, nil
	}
	if o.file != "" && o.file != "-" {
		data, err := os.ReadFile(o.file)
		if err != nil {
			return "", false, fmt.Errorf("读取文本文件失败: %w", err)
		}
		return string(data), false, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", true, fmt.Errorf("读取标准输入失败: %w", err)
	}
	return string(data), true, nil
}

func openStore(cfg *config.Config) (*store.DB, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// progressHooks 在终端输出合成进度和状态。done 在播放自然结束时关闭。
func progressHooks(done chan<- struct{}) *pipeline.Hooks {
	var once sync.Once
	return &pipeline.Hooks{
		OnProgress: func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\r正在生成语音... (%d/%d)", completed, total)
			if completed == total {
				fmt.Fprintln(os.Stderr)
			}
		},
		OnStatus: func(kind pipeline.StatusKind, message string) {
			switch kind {
			case pipeline.StatusGenerating:
				// 进度由 OnProgress 输出
			case pipeline.StatusCompleted:
				fmt.Fprintln(os.Stderr, message)
				if done != nil {
					once.Do(func() { close(done) })
				}
			default:
				fmt.Fprintln(os.Stderr, message)
			}
		},
	}
}

func cmdSpeak(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("speak", flag.ExitOnError)
	var opts textOptions
	opts.register(fs, cfg)
	engine := fs.String("engine", cfg.Engine, "引擎: google, edge, tencent, piper, say")
	volume := fs.Float64("volume", cfg.Audio.Volume, "音量 (0-1)")
	fs.Parse(args)

	text, fromStdin, err := opts.readText(fs.Args())
	if err != nil {
		return err
	}

	output, err := playback.NewMalgoOutput()
	if err != nil {
		return err
	}
	defer output.Close()

	db, err := openStore(cfg)
	if err != nil {
		logger.Warnf("[main] 打开数据库失败，不记录历史: %v", err)
	} else {
		defer db.Close()
	}

	done := make(chan struct{})
	cfg.Engine = *engine
	var history pipeline.HistoryRecorder
	if db != nil {
		history = db
	}
	session, err := pipeline.NewSessionFromConfig(cfg, output, history, progressHooks(done))
	if err != nil {
		return err
	}
	defer session.Close()
	session.SetVolume(*volume)

	req := pipeline.Request{Text: text, Voice: opts.voice, Rate: opts.rate}
	if err := session.Play(ctx, req); err != nil {
		return err
	}
	if session.State() == playback.StateIdle {
		return nil
	}

	if !fromStdin {
		fmt.Fprintln(os.Stderr, "回车: 暂停/继续  s: 停止  +/-: 音量")
		go readControls(session, *volume)
	}

	select {
	case <-done:
	case <-ctx.Done():
		session.Stop()
	}
	return nil
}

// readControls 从标准输入读取播放控制命令。
func readControls(session *pipeline.Session, volume float64) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			if err := session.TogglePause(); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "%s\n", session.State())
			}
		case "s":
			session.Stop()
			fmt.Fprintln(os.Stderr, "已停止")
			return
		case "+":
			volume = min(volume+0.1, 1.0)
			session.SetVolume(volume)
			fmt.Fprintf(os.Stderr, "音量 %.1f\n", volume)
		case "-":
			volume = max(volume-0.1, 0)
			session.SetVolume(volume)
			fmt.Fprintf(os.Stderr, "音量 %.1f\n", volume)
		}
	}
}

func cmdExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var opts textOptions
	opts.register(fs, cfg)
	out := fs.String("o", "", "输出文件（默认 speakit_<时间>.wav）")
	fs.Parse(args)

	text, _, err := opts.readText(fs.Args())
	if err != nil {
		return err
	}

	var history pipeline.HistoryRecorder
	if db, err := openStore(cfg); err == nil {
		defer db.Close()
		history = db
	}

	engine, err := pipeline.NewEngine("google", cfg, nil, history, progressHooks(nil))
	if err != nil {
		return err
	}
	defer engine.Close()

	wav, err := engine.Export(ctx, pipeline.Request{Text: text, Voice: opts.voice, Rate: opts.rate})
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("speakit_%s.wav", time.Now().Format("2006-01-02T15-04-05"))
	}
	if err := os.WriteFile(path, wav, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	fmt.Printf("已保存 %s (%d 字节)\n", path, len(wav))
	return nil
}

func cmdVoices(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("voices", flag.ExitOnError)
	refresh := fs.Bool("refresh", false, "忽略缓存，重新获取音色列表")
	fs.Parse(args)

	client, err := pipeline.NewClient(cfg)
	if err != nil {
		return err
	}

	var voices []tts.Voice
	db, err := openStore(cfg)
	if err != nil {
		logger.Warnf("[main] 打开数据库失败，不使用缓存: %v", err)
		voices, err = client.ListVoices(ctx)
	} else {
		defer db.Close()
		ttl := time.Duration(cfg.Store.VoiceTTLHours) * time.Hour
		voices, err = db.CachedVoices(ctx, cfg.Google.LanguageCode, ttl, *refresh, client.ListVoices)
	}
	if err != nil {
		return err
	}

	def, hasDefault := tts.DefaultVoice(voices)
	for _, group := range tts.GroupVoices(voices) {
		fmt.Printf("%s（%s）\n", group.Tier, group.Description)
		for _, v := range group.Voices {
			mark := " "
			if hasDefault && v.Name == def.Name {
				mark = "*"
			}
			fmt.Printf("  %s %-24s %s - %s\n", mark, v.Name, v.ShortName(), v.GenderLabel())
		}
	}
	return nil
}

func cmdPlayFile(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("play-file", flag.ExitOnError)
	volume := fs.Float64("volume", cfg.Audio.Volume, "音量 (0-1)")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("用法: speakit play-file <file.wav>")
	}

	buf, err := audio.ReadWAVFile(fs.Arg(0))
	if err != nil {
		return err
	}

	output, err := playback.NewMalgoOutput()
	if err != nil {
		return err
	}
	defer output.Close()

	player := playback.NewController(output)
	defer player.Close()

	done := make(chan struct{})
	player.SetOnComplete(func() { close(done) })
	if err := player.Play(buf, *volume); err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		player.Stop()
	}
	return nil
}

func cmdHistory(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 20, "显示条数")
	fs.Parse(args)

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.RecentHistory(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("暂无合成记录")
		return nil
	}
	for _, e := range entries {
		src := "合成"
		if e.FromCache {
			src = "缓存"
		}
		fmt.Printf("%s  %-8s %-22s x%.2f  %2d 段  %6.1fs  %s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Engine, e.Voice, e.Rate,
			e.Chunks, float64(e.Samples)/float64(cfg.Audio.SampleRate), src, e.Preview)
	}
	return nil
}
