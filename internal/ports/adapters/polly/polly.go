package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/samber/lo"

	"github.com/forPelevin/shortsmith/internal/types"
)

const DefaultVoice = "Matthew"

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Engine is standard, neural, long-form or generative.
	Engine     string
	SampleRate string
}

type client interface {
	SynthesizeSpeechWithContext(aws.Context, *polly.SynthesizeSpeechInput, ...request.Option) (*polly.SynthesizeSpeechOutput, error)
	DescribeVoicesWithContext(aws.Context, *polly.DescribeVoicesInput, ...request.Option) (*polly.DescribeVoicesOutput, error)
}

type Adapter struct {
	api client
	cfg Config
}

// New builds a Polly client. Without explicit keys the default AWS
// credential chain (env, shared config, instance role) is used.
func New(cfg Config) (*Adapter, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Engine == "" {
		cfg.Engine = polly.EngineNeural
	}
	if cfg.SampleRate == "" {
		cfg.SampleRate = "24000"
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return &Adapter{api: polly.New(sess), cfg: cfg}, nil
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice, outPath string) error {
	if voice == "" {
		voice = DefaultVoice
	}
	out, err := a.api.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: aws.String(polly.OutputFormatMp3),
		VoiceId:      aws.String(voice),
		Engine:       aws.String(a.cfg.Engine),
		SampleRate:   aws.String(a.cfg.SampleRate),
	})
	if err != nil {
		return fmt.Errorf("polly synthesize: %w", err)
	}
	if out.AudioStream == nil {
		return errors.New("polly synthesize: empty audio stream")
	}
	defer out.AudioStream.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(f, out.AudioStream); err != nil {
		f.Close()
		return fmt.Errorf("write audio file: %w", err)
	}
	return f.Close()
}

func (a *Adapter) ListVoices(ctx context.Context) ([]types.Voice, error) {
	in := &polly.DescribeVoicesInput{Engine: aws.String(a.cfg.Engine)}
	var all []*polly.Voice
	for {
		out, err := a.api.DescribeVoicesWithContext(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("polly describe voices: %w", err)
		}
		all = append(all, out.Voices...)
		if aws.StringValue(out.NextToken) == "" {
			break
		}
		in.NextToken = out.NextToken
	}
	return lo.Map(all, func(v *polly.Voice, _ int) types.Voice {
		return types.Voice{
			ID:     aws.StringValue(v.Id),
			Name:   aws.StringValue(v.Name),
			Locale: aws.StringValue(v.LanguageCode),
			Gender: aws.StringValue(v.Gender),
		}
	}), nil
}
