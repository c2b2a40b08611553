package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"

	"github.com/go-multichat/server/internal/objstore"
)

// BadMediaError reports content that failed validation, as opposed to a
// storage or transcode failure.
type BadMediaError struct {
	Reason string
}

func (e *BadMediaError) Error() string {
	return e.Reason
}

func IsBadMedia(err error) bool {
	var bad *BadMediaError
	return errors.As(err, &bad)
}

const (
	// storedMimetype is the normalized storage format every media
	// upload is transcoded to.
	storedMimetype = "image/jpeg"
	jpegQuality    = 85

	// maxDimension caps the stored width; larger uploads are scaled
	// down preserving aspect ratio.
	maxDimension = 2048

	// Avatars are accepted in exactly one shape.
	avatarFormat = "jpeg"
	AvatarWidth  = 400
	AvatarHeight = 400
)

var acceptedMimetypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
}

// Stored describes a media object after the pipeline has run.
type Stored struct {
	Key      string
	Mimetype string
	Width    int
	Height   int
}

// Processor owns the media-message pipeline: probe, transcode, upload.
type Processor struct {
	store   objstore.ObjectStore
	bucket  string
	timeout time.Duration
}

func NewProcessor(store objstore.ObjectStore, mediaBucket string, timeout time.Duration) *Processor {
	return &Processor{
		store:   store,
		bucket:  mediaBucket,
		timeout: timeout,
	}
}

// Store runs the source stream through two concurrent consumers: one
// probes the header for the real format and dimensions, the other
// decodes, transcodes to the normalized format and streams the result
// to the object store. The raw payload is never buffered whole. A
// failed probe (wrong or mislabeled format) cancels the upload before
// anything is stored; an upload failure cancels the probe. Both
// branches are bounded by the processor timeout.
func (p *Processor) Store(ctx context.Context, src io.Reader, declaredType string) (Stored, error) {
	detectFormat, ok := acceptedMimetypes[declaredType]
	if !ok {
		return Stored{}, &BadMediaError{Reason: fmt.Sprintf("unsupported media type %q", declaredType)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// The source is read through a pipe so a stalled client cannot park
	// the pipeline past its deadline: closing the read half unblocks the
	// feeder even while the pump sits in src.Read.
	srcR, srcW := io.Pipe()
	go func() {
		_, err := io.Copy(srcW, src)
		srcW.CloseWithError(err)
	}()

	probeR, probeW := io.Pipe()
	uploadR, uploadW := io.Pipe()

	var (
		cfg      image.Config
		probeErr error
	)
	probeDone := make(chan struct{})
	key := uuid.NewString()

	g, gctx := errgroup.WithContext(ctx)

	go func() {
		<-gctx.Done()
		srcR.CloseWithError(gctx.Err())
	}()

	// Feed both branches from the single source stream.
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(probeW, uploadW), srcR)
		probeW.CloseWithError(err)
		uploadW.CloseWithError(err)
		return err
	})

	// Probe branch: detect the real format and dimensions from the
	// header, then drain so the feeder is never blocked.
	g.Go(func() error {
		defer close(probeDone)

		c, format, err := image.DecodeConfig(probeR)
		if err != nil {
			if gctx.Err() != nil {
				probeR.CloseWithError(gctx.Err())
				return gctx.Err()
			}
			probeErr = &BadMediaError{Reason: "unreadable image data"}
			probeR.CloseWithError(probeErr)
			return probeErr
		}

		if format != detectFormat {
			probeErr = &BadMediaError{Reason: fmt.Sprintf("media labeled %s but detected %s", declaredType, format)}
			probeR.CloseWithError(probeErr)
			return probeErr
		}

		cfg = c
		io.Copy(io.Discard, probeR)
		return nil
	})

	// Transcode-and-upload branch.
	g.Go(func() error {
		img, _, err := image.Decode(uploadR)
		if err != nil {
			uploadR.CloseWithError(err)
			if IsBadMedia(err) || gctx.Err() != nil {
				return err
			}
			return &BadMediaError{Reason: "undecodable image data"}
		}
		io.Copy(io.Discard, uploadR)

		// Nothing is stored until the probe has accepted the content.
		<-probeDone
		if probeErr != nil {
			return probeErr
		}

		if img.Bounds().Dx() > maxDimension {
			img = resize.Resize(maxDimension, 0, img, resize.Lanczos3)
		}

		encR, encW := io.Pipe()
		go func() {
			encW.CloseWithError(jpeg.Encode(encW, img, &jpeg.Options{Quality: jpegQuality}))
		}()

		if err := p.store.Put(gctx, p.bucket, key, encR, storedMimetype); err != nil {
			encR.CloseWithError(err)
			return fmt.Errorf("store media: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		// The probe's verdict wins over secondary pipe errors.
		if probeErr != nil {
			return Stored{}, probeErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Stored{}, fmt.Errorf("media pipeline: %w", ctxErr)
		}
		return Stored{}, err
	}

	return Stored{
		Key:      key,
		Mimetype: storedMimetype,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// ValidateAvatar accepts exactly one avatar shape: a JPEG with fixed
// pixel dimensions. The check runs on the real bytes, not the declared
// mimetype.
func ValidateAvatar(buf []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return &BadMediaError{Reason: "unreadable image data"}
	}

	if format != avatarFormat || cfg.Width != AvatarWidth || cfg.Height != AvatarHeight {
		return &BadMediaError{Reason: fmt.Sprintf("avatar must be a %dx%d jpeg", AvatarWidth, AvatarHeight)}
	}

	return nil
}
