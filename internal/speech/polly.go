// Package speech provides the announcement backends used by the speech
// worker.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Player plays an MP3 stream.
type Player interface {
	Play(ctx context.Context, mp3 io.Reader) error
}

// PollyConfig selects the voice used for announcements.
type PollyConfig struct {
	Region  string
	VoiceID string
	Engine  string
	Timeout time.Duration
}

// Polly speaks through Amazon Polly.
type Polly struct {
	cfg    PollyConfig
	player Player

	mu     sync.Mutex
	client synthClient
}

// NewPolly creates a speaker. The AWS client is created on first use.
func NewPolly(cfg PollyConfig, player Player) *Polly {
	return newPollyWithClient(cfg, player, nil)
}

func newPollyWithClient(cfg PollyConfig, player Player, client synthClient) *Polly {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Matthew"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "standard"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if player == nil {
		player = CommandPlayer{Name: "mpg123", Args: []string{"-q", "-"}}
	}
	return &Polly{cfg: cfg, player: player, client: client}
}

// Speak synthesizes text and plays it.
func (p *Polly) Speak(ctx context.Context, text string) error {
	client, err := p.resolveClient(ctx)
	if err != nil {
		return err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(p.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	synthCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	out, err := client.SynthesizeSpeech(synthCtx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(p.cfg.VoiceID),
	})
	if err != nil {
		return describePollyError(err)
	}
	if out == nil || out.AudioStream == nil {
		return errors.New("polly: empty audio stream")
	}
	defer out.AudioStream.Close()

	if err := p.player.Play(ctx, out.AudioStream); err != nil {
		return fmt.Errorf("play announcement: %w", err)
	}
	return nil
}

func describePollyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("polly %s: %w", apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("polly: %w", err)
}

func (p *Polly) resolveClient(ctx context.Context) (synthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	p.client = polly.NewFromConfig(awsCfg)
	return p.client, nil
}

// CommandPlayer pipes audio into an external player's stdin.
type CommandPlayer struct {
	Name string
	Args []string
}

func (c CommandPlayer) Play(ctx context.Context, mp3 io.Reader) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = mp3
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, out)
	}
	return nil
}
