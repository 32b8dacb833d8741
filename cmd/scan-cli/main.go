package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/wildwatch/wildlife-scan-bot/internal/config"
	"github.com/wildwatch/wildlife-scan-bot/internal/gemini"
	"github.com/wildwatch/wildlife-scan-bot/internal/matcher"
	"github.com/wildwatch/wildlife-scan-bot/internal/models"
	"github.com/wildwatch/wildlife-scan-bot/internal/scan"
	"github.com/wildwatch/wildlife-scan-bot/internal/youtube"
)

func main() {
	maxVideos := flag.Int("max-videos", 0, "maximum number of videos to scan")
	maxComments := flag.Int("max-comments", 0, "maximum comments (including replies) per video")
	language := flag.String("language", "", "keyword language: "+fmt.Sprint(matcher.Languages()))
	keywords := flag.String("keywords", "", "custom keyword list (comma or newline separated), overrides -language")
	analyzeThumbnails := flag.Bool("analyze-thumbnails", false, "classify video thumbnails with Gemini")
	sleep := flag.Duration("sleep", 0, "pause between classifier calls")
	outDir := flag.String("out", ".", "directory for the result CSV files")
	timeout := flag.Duration("timeout", 0, "abort the scan after this duration (0 = no limit)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <search keyword>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	spec := models.ScanJobSpec{
		Keyword:             flag.Arg(0),
		MaxVideos:           *maxVideos,
		MaxCommentsPerVideo: *maxComments,
		Language:            *language,
		Keywords:            matcher.ParseKeywordList(*keywords),
		AnalyzeThumbnails:   *analyzeThumbnails,
		ClassifierDelay:     *sleep,
	}
	if spec.MaxVideos == 0 {
		spec.MaxVideos = cfg.DefaultMaxVideos
	}
	if spec.MaxCommentsPerVideo == 0 {
		spec.MaxCommentsPerVideo = cfg.DefaultMaxComments
	}
	if spec.Language == "" {
		spec.Language = cfg.DefaultLanguage
	}
	if spec.ClassifierDelay == 0 {
		spec.ClassifierDelay = cfg.ClassifierDelay
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	engine := scan.NewEngine(
		youtube.NewClient(cfg.YouTubeAPIKey),
		gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel),
	)

	start := time.Now()
	result, err := engine.Run(ctx, spec, *outDir, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanned %d video(s) in %s\n", len(result.Videos), time.Since(start).Round(time.Second))
	fmt.Printf("Results written to %s", result.VideoCSVPath)
	if result.HitsCSVPath != "" {
		fmt.Printf(" and %s", result.HitsCSVPath)
	}
	fmt.Println()
}
