package capture

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type fakeFrame struct {
	w, h     int
	c        color.RGBA
	mapErr   error
	released atomic.Bool
}

func newFakeFrame(w, h int, c color.RGBA) *fakeFrame {
	return &fakeFrame{w: w, h: h, c: c}
}

func (f *fakeFrame) Width() int  { return f.w }
func (f *fakeFrame) Height() int { return f.h }

func (f *fakeFrame) MapRead(context.Context) error {
	return f.mapErr
}

func (f *fakeFrame) ExtractData() ([]byte, error) {
	f.released.Store(true)
	return bytes.Repeat([]byte{f.c.R, f.c.G, f.c.B, f.c.A}, f.w*f.h), nil
}

func (f *fakeFrame) Release() {
	f.released.Store(true)
}

type recordingEncoder struct {
	mu      sync.Mutex
	ext     string
	err     error
	batches [][]RawFrame
	rates   []float64
}

func (e *recordingEncoder) Extension() string { return e.ext }

func (e *recordingEncoder) EncodeSequence(path string, frames []RawFrame, res Resolution, rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, frames)
	e.rates = append(e.rates, rate)
	return e.err
}

type processedLog struct {
	mu      sync.Mutex
	entries []processedEntry
}

type processedEntry struct {
	msg         Message
	accumulated int
}

func (l *processedLog) hook(msg Message, accumulated int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, processedEntry{msg: msg, accumulated: accumulated})
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 13, 14, 15, 678_000_000, time.UTC)
}

func TestGifPreservesFrameOrder(t *testing.T) {
	dir := t.TempDir()
	log := &processedLog{}
	ch := NewChannel(
		WithOutputDir(dir),
		WithClock(fixedClock),
		WithGifEncoder(NewGifEncoder(10, 0, 2)),
		WithProcessedHook(log.hook),
	)

	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(4, 4, red)}))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(4, 4, blue)}))
	require.NoError(t, ch.Send(SaveGif{Resolution: Resolution{Width: 4, Height: 4}}))
	ch.Close()

	require.Len(t, log.entries, 4)
	assert.Equal(t, 1, log.entries[0].accumulated)
	assert.Equal(t, 2, log.entries[1].accumulated)
	assert.IsType(t, SaveGif{}, log.entries[2].msg)
	assert.Equal(t, 0, log.entries[2].accumulated)

	f, err := os.Open(filepath.Join(dir, "13-14-15-678.gif"))
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)

	require.Len(t, anim.Image, 2)
	assert.Equal(t, 0, anim.LoopCount)
	assert.Equal(t, []int{10, 10}, anim.Delay)

	r0, _, b0, _ := anim.Image[0].At(1, 1).RGBA()
	r1, _, b1, _ := anim.Image[1].At(1, 1).RGBA()
	assert.Greater(t, r0, b0)
	assert.Greater(t, b1, r1)
}

func TestSendAfterExitIsRejected(t *testing.T) {
	ch := NewChannel(WithOutputDir(t.TempDir()))
	require.NoError(t, ch.Send(Exit{}))

	frame := newFakeFrame(2, 2, red)
	assert.NotPanics(t, func() {
		err := ch.Send(ExtractData{Frame: frame})
		assert.ErrorIs(t, err, ErrChannelClosed)
	})
	assert.True(t, frame.released.Load())

	ch.Close()
	ch.Close()
	select {
	case <-ch.Done():
	default:
		t.Fatal("worker still running after Close")
	}
	assert.ErrorIs(t, ch.Send(SaveGif{}), ErrChannelClosed)
}

func TestFailedEncodeStillClearsRecording(t *testing.T) {
	failing := &recordingEncoder{ext: "mp4", err: errors.New("ffmpeg exploded")}
	gifs := &recordingEncoder{ext: "gif"}
	log := &processedLog{}
	ch := NewChannel(
		WithOutputDir(t.TempDir()),
		WithMp4Encoder(failing),
		WithGifEncoder(gifs),
		WithProcessedHook(log.hook),
	)

	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(2, 2, red)}))
	require.NoError(t, ch.Send(SaveMp4{Rate: 24, Resolution: Resolution{Width: 2, Height: 2}}))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(2, 2, blue)}))
	require.NoError(t, ch.Send(SaveGif{Resolution: Resolution{Width: 2, Height: 2}}))
	ch.Close()

	require.Len(t, failing.batches, 1)
	assert.Len(t, failing.batches[0], 1)
	assert.Equal(t, []float64{24}, failing.rates)
	assert.Equal(t, 0, log.entries[1].accumulated)

	require.Len(t, gifs.batches, 1)
	require.Len(t, gifs.batches[0], 1)
	assert.Equal(t, blue.B, gifs.batches[0][0].Pix[2])
}

func TestSaveGifRate(t *testing.T) {
	gifs := &recordingEncoder{ext: "gif"}
	ch := NewChannel(WithOutputDir(t.TempDir()), WithGifEncoder(gifs))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(1, 1, red)}))
	require.NoError(t, ch.Send(SaveGif{Rate: 50}))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(1, 1, red)}))
	require.NoError(t, ch.Send(SaveGif{}))
	ch.Close()

	assert.Equal(t, []float64{50, 0}, gifs.rates)
}

func TestSaveGifRateSetsFrameDelay(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(WithOutputDir(dir), WithClock(fixedClock), WithGifEncoder(NewGifEncoder(10, 0, 1)))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(2, 2, red)}))
	require.NoError(t, ch.Send(SaveGif{Rate: 50}))
	ch.Close()

	f, err := os.Open(filepath.Join(dir, "13-14-15-678.gif"))
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, anim.Delay)
}

func TestErrorHandlerReceivesFailures(t *testing.T) {
	failing := &recordingEncoder{ext: "mp4", err: errors.New("ffmpeg exploded")}
	var mu sync.Mutex
	var failures []Message
	var errs []error
	ch := NewChannel(
		WithOutputDir(t.TempDir()),
		WithMp4Encoder(failing),
		WithErrorHandler(func(msg Message, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, msg)
			errs = append(errs, err)
		}),
	)

	bad := newFakeFrame(2, 2, red)
	bad.mapErr = errors.New("device lost")
	require.NoError(t, ch.Send(ExtractData{Frame: bad}))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(2, 2, red)}))
	require.NoError(t, ch.Send(SaveMp4{Rate: 24}))
	require.NoError(t, ch.Send(SaveGif{}))
	ch.Close()

	require.Len(t, errs, 2)
	assert.IsType(t, ExtractData{}, failures[0])
	assert.ErrorContains(t, errs[0], "device lost")
	assert.IsType(t, SaveMp4{}, failures[1])
	var encErr *EncodingError
	require.ErrorAs(t, errs[1], &encErr)
	assert.Equal(t, "mp4", encErr.Format)
	assert.ErrorContains(t, errs[1], "ffmpeg exploded")
}

func TestMaxFramesDropsOverflow(t *testing.T) {
	gifs := &recordingEncoder{ext: "gif"}
	ch := NewChannel(WithOutputDir(t.TempDir()), WithGifEncoder(gifs), WithMaxFrames(2))

	frames := []*fakeFrame{
		newFakeFrame(1, 1, red),
		newFakeFrame(1, 1, blue),
		newFakeFrame(1, 1, red),
	}
	for _, f := range frames {
		require.NoError(t, ch.Send(ExtractData{Frame: f}))
	}
	require.NoError(t, ch.Send(SaveGif{}))
	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(1, 1, blue)}))
	require.NoError(t, ch.Send(SaveGif{}))
	ch.Close()

	for _, f := range frames {
		assert.True(t, f.released.Load())
	}
	require.Len(t, gifs.batches, 2)
	assert.Len(t, gifs.batches[0], 2)
	assert.Len(t, gifs.batches[1], 1)
}

func TestEmptySaveIsSkipped(t *testing.T) {
	gifs := &recordingEncoder{ext: "gif"}
	ch := NewChannel(WithOutputDir(t.TempDir()), WithGifEncoder(gifs))
	require.NoError(t, ch.Send(SaveGif{}))
	ch.Close()
	assert.Empty(t, gifs.batches)
}

func TestReadbackFailureIsNotRecorded(t *testing.T) {
	log := &processedLog{}
	ch := NewChannel(WithOutputDir(t.TempDir()), WithProcessedHook(log.hook))

	bad := newFakeFrame(2, 2, red)
	bad.mapErr = errors.New("device lost")
	require.NoError(t, ch.Send(ExtractData{Frame: bad}))
	ch.Close()

	assert.True(t, bad.released.Load())
	assert.Equal(t, 0, log.entries[0].accumulated)
}

func TestSavePngLeavesRecordingUntouched(t *testing.T) {
	dir := t.TempDir()
	log := &processedLog{}
	ch := NewChannel(WithOutputDir(dir), WithClock(fixedClock), WithProcessedHook(log.hook))

	require.NoError(t, ch.Send(ExtractData{Frame: newFakeFrame(3, 2, blue)}))
	require.NoError(t, ch.Send(SavePng{Frame: newFakeFrame(3, 2, red), Resolution: Resolution{Width: 3, Height: 2}}))
	ch.Close()

	assert.Equal(t, 1, log.entries[1].accumulated)

	f, err := os.Open(filepath.Join(dir, "13-14-15-678.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, red, color.RGBAModel.Convert(img.At(2, 1)))
}

func TestSavePngScalesToResolution(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(WithOutputDir(dir), WithClock(fixedClock))
	require.NoError(t, ch.Send(SavePng{Frame: newFakeFrame(4, 2, red), Resolution: Resolution{Width: 8, Height: 4}}))
	ch.Close()

	f, err := os.Open(filepath.Join(dir, "13-14-15-678.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	r, _, b, _ := img.At(7, 3).RGBA()
	assert.Greater(t, r, b)
}

func TestScaleStillKeepsMatchingSize(t *testing.T) {
	img := RawFrame{Width: 2, Height: 2, Pix: make([]byte, 16)}.Image()
	assert.Same(t, img, scaleStill(img, Resolution{}))
	assert.Same(t, img, scaleStill(img, Resolution{Width: 2, Height: 2}))
	assert.Equal(t, 3, scaleStill(img, Resolution{Width: 3, Height: 1}).Bounds().Dx())
}

func TestSaveStillFormats(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(WithOutputDir(dir), WithClock(fixedClock))
	require.NoError(t, ch.Send(SaveStill{Frame: newFakeFrame(2, 2, red), Format: StillBMP}))
	require.NoError(t, ch.Send(SaveStill{Frame: newFakeFrame(2, 2, blue), Format: StillTIFF}))
	ch.Close()

	bf, err := os.Open(filepath.Join(dir, "13-14-15-678.bmp"))
	require.NoError(t, err)
	defer bf.Close()
	bimg, err := bmp.Decode(bf)
	require.NoError(t, err)
	assert.Equal(t, red, color.RGBAModel.Convert(bimg.At(0, 0)))

	tf, err := os.Open(filepath.Join(dir, "13-14-15-678.tiff"))
	require.NoError(t, err)
	defer tf.Close()
	timg, err := tiff.Decode(tf)
	require.NoError(t, err)
	assert.Equal(t, blue, color.RGBAModel.Convert(timg.At(1, 1)))
}

func TestSameTimestampGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	ch := NewChannel(WithOutputDir(dir), WithClock(fixedClock))
	require.NoError(t, ch.Send(SavePng{Frame: newFakeFrame(1, 1, red)}))
	require.NoError(t, ch.Send(SavePng{Frame: newFakeFrame(1, 1, red)}))
	ch.Close()

	assert.FileExists(t, filepath.Join(dir, "13-14-15-678.png"))
	assert.FileExists(t, filepath.Join(dir, "13-14-15-678-1.png"))
}

func TestParseStillFormat(t *testing.T) {
	f, err := ParseStillFormat("TIFF")
	require.NoError(t, err)
	assert.Equal(t, StillTIFF, f)
	assert.Equal(t, "tiff", f.Extension())

	_, err = ParseStillFormat("jpeg")
	assert.Error(t, err)
}
