package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stylegen/internal/domain"
	"stylegen/internal/generation"
	"stylegen/internal/infra"
	"stylegen/internal/tasks"
)

const usage = `usage:
  genctl generate -image photo.jpg [-style 水彩插画] [-prompt text] [-size 1K|2K] [-aspect 1:1]
  genctl resume
common flags: -api http://localhost:8080 -state <file>`

type cli struct {
	api     *tasks.APIClient
	store   *tasks.FileContextStore
	resumer *tasks.Resumer
	logger  infra.Logger
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	apiURL := fs.String("api", envOr("GENCTL_API_URL", "http://localhost:8080"), "API base url")
	statePath := fs.String("state", tasks.DefaultContextPath(), "file holding resumable task contexts")
	image := fs.String("image", "", "source image path")
	refImage := fs.String("ref", "", "optional reference image path")
	style := fs.String("style", "", "style title")
	prompt := fs.String("prompt", "", "extra instructions")
	size := fs.String("size", "1K", "output size")
	aspect := fs.String("aspect", "", "aspect ratio")
	_ = fs.Parse(args)

	logger := infra.NewLogger(envOr("APP_ENV", "development")).With().Str("cmd", "genctl").Logger()
	store, err := tasks.NewFileContextStore(*statePath, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("genctl: invalid state file")
	}
	api := tasks.NewAPIClient(*apiURL, nil)
	resumer := tasks.NewResumer(api, &logger)
	resumer.OnProgress = func(t domain.GenerationTask) {
		fmt.Fprintf(os.Stderr, "%s: %s %d%%\n", t.ID, t.Status, t.Progress)
	}
	c := &cli{api: api, store: store, resumer: resumer, logger: logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "generate":
		req := generation.Request{Style: *style, Prompt: *prompt, OutputSize: *size, AspectRatio: *aspect}
		err = c.generate(ctx, req, *image, *refImage)
	case "resume":
		err = c.resume(ctx)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted; run `genctl resume` within the hour to continue")
			os.Exit(130)
		}
		logger.Error().Err(err).Msg("genctl: failed")
		os.Exit(1)
	}
}

func (c *cli) generate(ctx context.Context, req generation.Request, imagePath, refPath string) error {
	if imagePath == "" {
		return errors.New("-image is required")
	}
	var err error
	if req.Image, req.MimeType, err = readImage(imagePath); err != nil {
		return err
	}
	if refPath != "" {
		if req.RefImage, _, err = readImage(refPath); err != nil {
			return err
		}
	}

	submitted, err := c.api.Generate(ctx, req)
	if err != nil {
		return err
	}
	if submitted.ID == "" {
		if submitted.ImageURL == "" {
			return errors.New("upstream returned neither a task id nor an image")
		}
		fmt.Println(submitted.ImageURL)
		return nil
	}

	inputs, _ := json.Marshal(map[string]string{"style": req.Style, "prompt": req.Prompt, "image": imagePath})
	tc := domain.ResumableTaskContext{TaskID: submitted.ID, RequestKind: "generate", OriginalInputs: inputs, CreatedAt: time.Now().UTC()}
	if err := c.store.Save(tc); err != nil {
		c.logger.Warn().Err(err).Msg("genctl: could not save task context")
	}
	return c.await(ctx, tc)
}

func (c *cli) resume(ctx context.Context) error {
	pending, err := c.store.Load()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(os.Stderr, "no resumable tasks")
		return nil
	}
	var errs []error
	for _, tc := range pending {
		if err := c.await(ctx, tc); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// await polls tc and forgets it once it settles or expires.
func (c *cli) await(ctx context.Context, tc domain.ResumableTaskContext) error {
	task, err := c.resumer.Resume(ctx, tc)
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, domain.ErrTaskExpired):
		_ = c.store.Remove(tc.TaskID)
		return err
	case err != nil && !task.Terminal():
		return err
	}
	_ = c.store.Remove(tc.TaskID)
	if err != nil {
		return err
	}
	for _, u := range task.ResultURLs {
		fmt.Println(u)
	}
	return nil
}

func readImage(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "image/png"
	}
	return base64.StdEncoding.EncodeToString(raw), mimeType, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
