package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/relayne/postdeck/configs"
	"github.com/relayne/postdeck/internal/apperr"
)

// MediaService stages draft media in R2 and fetches it back when the
// publishing pipeline needs the raw bytes for the platform upload.
type MediaService interface {
	Store(ctx context.Context, media []byte) (string, string, error)
	Fetch(ctx context.Context, mediaReference string) ([]byte, string, error)
}

type mediaService struct {
	config cfg.Config
}

func NewMediaService(cfg cfg.Config) MediaService {
	return &mediaService{config: cfg}
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

func (m *mediaService) client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	}), nil
}

// Store sniffs the media type, uploads the bytes under a fresh key, and
// returns the public media reference plus the detected MIME type.
func (m *mediaService) Store(ctx context.Context, media []byte) (string, string, error) {
	kind, err := filetype.Match(media)
	if err != nil || kind == types.Unknown {
		return "", "", apperr.New(apperr.KindValidation, "unsupported file type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return "", "", apperr.Newf(apperr.KindValidation, "file type %s is not allowed", kind.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	client, err := m.client(ctx)
	if err != nil {
		return "", "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(media),
		ContentType: aws.String(kind.MIME.Value),
	}
	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", "", apperr.Wrap(apperr.KindUpstream, "failed to stage media", err)
	}

	return fmt.Sprintf("%s/%s", m.config.R2.PublicURL, key), kind.MIME.Value, nil
}

// Fetch downloads staged media by its reference URL and returns the bytes
// with their MIME type.
func (m *mediaService) Fetch(ctx context.Context, mediaReference string) ([]byte, string, error) {
	parsed, err := url.Parse(mediaReference)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindValidation, "invalid media reference", err)
	}
	key := path.Base(parsed.Path)
	if key == "" || key == "." || key == "/" {
		return nil, "", apperr.New(apperr.KindValidation, "invalid media reference")
	}

	client, err := m.client(ctx)
	if err != nil {
		return nil, "", err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.config.R2.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, "", apperr.Wrap(apperr.KindUpstream, "failed to fetch staged media", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, "", err
	}

	mimeType := ""
	if out.ContentType != nil {
		mimeType = *out.ContentType
	}
	return data, mimeType, nil
}
