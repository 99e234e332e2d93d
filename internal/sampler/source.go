package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/bluenviron/gortsplib/v4/pkg/format/rtpmjpeg"
	"github.com/pion/rtp"

	"github.com/shashibhat/safehaven-core/internal/imaging"
)

// VideoSource yields decoded frames from a camera stream. It is the
// seam between the sampler loop and whatever transport/codec library
// actually talks to the camera, so nothing above this package names
// gortsplib directly.
type VideoSource interface {
	// Next blocks until a frame is available or ctx is canceled.
	Next(ctx context.Context) (imaging.Frame, error)
	Close() error
}

// RTSPSource pulls Motion-JPEG frames over RTSP using gortsplib. Only
// MJPEG-encoded streams are supported; anything else is a setup error,
// since decoding arbitrary codecs into image.Image has no pure-Go
// option available here.
type RTSPSource struct {
	client  *gortsplib.Client
	decoder *rtpmjpeg.Decoder
	frames  chan []byte
	errs    chan error
}

// NewRTSPSource dials streamURL and negotiates an MJPEG media track.
// transport is "tcp" or "udp".
func NewRTSPSource(streamURL, transport string) (*RTSPSource, error) {
	u, err := base.ParseURL(streamURL)
	if err != nil {
		return nil, fmt.Errorf("sampler: parse stream url: %w", err)
	}

	proto := gortsplib.TransportTCP
	if strings.EqualFold(transport, "udp") {
		proto = gortsplib.TransportUDP
	}

	client := &gortsplib.Client{Transport: &proto}
	if err := client.Start(u.Scheme, u.Host); err != nil {
		return nil, fmt.Errorf("sampler: connect: %w", err)
	}

	desc, _, err := client.Describe(u)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("sampler: describe: %w", err)
	}

	var mjpegFormat *format.MJPEG
	var mjpegMedia *description.Media
	for _, media := range desc.Medias {
		for _, f := range media.Formats {
			if mj, ok := f.(*format.MJPEG); ok {
				mjpegFormat = mj
				mjpegMedia = media
				break
			}
		}
		if mjpegFormat != nil {
			break
		}
	}
	if mjpegFormat == nil {
		client.Close()
		return nil, fmt.Errorf("sampler: no MJPEG track found in %s", streamURL)
	}

	decoder, err := mjpegFormat.CreateDecoder()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("sampler: create mjpeg decoder: %w", err)
	}

	src := &RTSPSource{
		client:  client,
		decoder: decoder,
		frames:  make(chan []byte, 4),
		errs:    make(chan error, 1),
	}

	client.OnPacketRTP(mjpegMedia, mjpegFormat, func(pkt *rtp.Packet) {
		jpegBytes, err := decoder.Decode(pkt)
		if err != nil {
			return // incomplete frame; wait for the next packet
		}
		select {
		case src.frames <- jpegBytes:
		default: // drop if the consumer is behind; the queue upstream already debounces freshness
		}
	})

	if _, err := client.SetupAll(desc.BaseURL, desc.Medias); err != nil {
		client.Close()
		return nil, fmt.Errorf("sampler: setup: %w", err)
	}
	if _, err := client.Play(nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("sampler: play: %w", err)
	}

	return src, nil
}

// Next waits for the next decoded JPEG frame and decodes it to an
// image.Image-backed Frame.
func (s *RTSPSource) Next(ctx context.Context) (imaging.Frame, error) {
	select {
	case <-ctx.Done():
		return imaging.Frame{}, ctx.Err()
	case err := <-s.errs:
		return imaging.Frame{}, err
	case raw := <-s.frames:
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return imaging.Frame{}, fmt.Errorf("sampler: decode jpeg frame: %w", err)
		}
		return imaging.Frame{Img: img}, nil
	}
}

// Close tears down the RTSP session.
func (s *RTSPSource) Close() error {
	return s.client.Close()
}
